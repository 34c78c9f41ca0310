// Package http implements the HTTP handlers of the discount dashboard.
// Handlers stay thin: they parse and validate the request, call a service
// and turn the result into JSON.
//
// # Routes
//
//	GET  /api/dashboard/analyses                         analysis selector
//	GET  /api/dashboard/analyses/{kind}/plots            plot selector
//	GET  /api/dashboard/plots/{plotID}                   chart or table, filtered
//	GET  /api/dashboard/plots/{plotID}/table.csv         plot table as a CSV download
//	GET  /api/dashboard/plots/{plotID}/panel             insights and recommendation panel
//	POST /api/dashboard/plots/{plotID}/insights/toggle
//	POST /api/dashboard/plots/{plotID}/recommendation/toggle
//	POST /api/dashboard/plots/{plotID}/follow-up
//	GET  /api/dashboard/facts                            facts and figures
//	GET  /api/dashboard/filters                          multi-select filter values
//	GET  /api/dashboard/dataset                          load status
//	POST /api/dashboard/dataset/reload
//	POST /api/log                                        client-side log lines
//
// Successful responses use the envelope {"status":"success","data":...}.
// Failures are RFC 7807 problem documents produced by the errors package.
//
// Toggle state lives in the caller's session, which the session middleware
// binds to the request context before these handlers run.
package http

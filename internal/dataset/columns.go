package dataset

// Source column names. Headers are lower-cased and trimmed on load so these
// match regardless of how the spreadsheet capitalises them.
const (
	ColQuantity          = "qty"
	ColValue             = "value"
	ColWeight            = "wt"
	ColDiscount          = "discount"
	ColItemDiscount      = "idisc"
	ColOtherBillDiscount = "obdisc"
	ColSchemeDiscount    = "ghsdisc"
	ColBillDiscount      = "bdisc"
	ColMakingCharge      = "mc"
	ColGoldPrice         = "goldprice"
	ColStoneValue        = "stonevalue"
	ColBrand             = "brand"
	ColRegion            = "region"
	ColChannelLevel      = "level"
	ColRetailCluster     = "rcluster"
	ColCategory          = "totcategory"
	ColMakingChargeBand  = "amcb"
	ColPriceBand         = "priceband"
	ColTotalECBand       = "totalecband"
	ColClusterECBand     = "clusterecband"
	ColLocationCode      = "loccode"
	ColCustomerID        = "customerno"
	ColDocumentDate      = "docdate"
	ColMonth             = "month"
	ColYear              = "year"
	ColYearMonth         = "yearmonth"
)

// NumericColumns are the measures the facts summary describes.
var NumericColumns = []string{
	ColQuantity, ColValue, ColWeight, ColDiscount, ColItemDiscount,
	ColOtherBillDiscount, ColSchemeDiscount, ColMakingCharge, ColGoldPrice, ColStoneValue,
}

// DiscountColumns lists the discount measure and its components.
var DiscountColumns = []string{ColDiscount, ColItemDiscount, ColOtherBillDiscount, ColSchemeDiscount}

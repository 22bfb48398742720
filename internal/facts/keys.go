package facts

// Default us-gaap concept names used by the calculators.
const (
	KeyRevenue             = "Revenues"
	KeyEPSDiluted          = "EarningsPerShareDiluted"
	KeyStockholdersEquity  = "StockholdersEquity"
	KeySharesOutstanding   = "CommonStockSharesOutstanding"
	KeyOperatingCashFlow   = "NetCashProvidedByUsedInOperatingActivities"
	KeyCapitalExpenditures = "PaymentsToAcquirePropertyPlantAndEquipment"
	KeyOperatingIncome     = "OperatingIncomeLoss"
	KeyAssets              = "Assets"
	KeyCash                = "CashAndCashEquivalentsAtCarryingValue"
	KeyLiabilities         = "Liabilities"
	KeyLongTermDebt        = "LongTermDebtNoncurrent"
	KeyLongTermInvestments = "LongTermInvestments"
	KeyIncomeTaxExpense    = "IncomeTaxExpenseBenefit"
	KeyIncomeBeforeTax     = "IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest"
	KeyNetIncome           = "NetIncomeLoss"
	KeyCurrentLiabilities  = "LiabilitiesCurrent"
)

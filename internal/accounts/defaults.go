package accounts

import "github.com/cleared-dev/ucto/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
func DefaultChart(entityType string) []model.Account {
	switch entityType {
	case "sro":
		return sroChart()
	default:
		return sroChart()
	}
}

func sroChart() []model.Account {
	asset := func(code, name string, system bool) model.Account {
		return model.Account{Code: code, Name: name, Type: model.AccountTypeAsset, NormalSide: model.SideMD, Active: true, System: system}
	}
	liability := func(code, name string, system bool) model.Account {
		return model.Account{Code: code, Name: name, Type: model.AccountTypeLiability, NormalSide: model.SideD, Active: true, System: system}
	}
	return []model.Account{
		asset("211", "Cash", true),
		asset("221", "Bank accounts", true),
		asset("311", "Trade receivables", true),
		liability("321", "Trade payables", true),
		liability("331", "Employees", true),
		liability("336", "Social and health insurance", true),
		liability("342", "Income tax payable", true),
		liability("343", "Value added tax", true),
		{Code: "411", Name: "Share capital", Type: model.AccountTypeEquity, NormalSide: model.SideD, Active: true, System: true},
		{Code: "428", Name: "Retained earnings", Type: model.AccountTypeEquity, NormalSide: model.SideD, Active: true},
		{Code: "501", Name: "Material consumption", Type: model.AccountTypeExpense, NormalSide: model.SideMD, Active: true},
		{Code: "518", Name: "Other services", Type: model.AccountTypeExpense, NormalSide: model.SideMD, Active: true, System: true},
		{Code: "521", Name: "Wages", Type: model.AccountTypeExpense, NormalSide: model.SideMD, Active: true, System: true},
		{Code: "524", Name: "Statutory social insurance", Type: model.AccountTypeExpense, NormalSide: model.SideMD, Active: true, System: true},
		{Code: "601", Name: "Sales of own products", Type: model.AccountTypeRevenue, NormalSide: model.SideD, Active: true},
		{Code: "602", Name: "Sales of services", Type: model.AccountTypeRevenue, NormalSide: model.SideD, Active: true, System: true},
		{Code: "604", Name: "Sales of goods", Type: model.AccountTypeRevenue, NormalSide: model.SideD, Active: true},
	}
}

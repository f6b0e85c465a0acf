package domain

import "time"

// SalesSummary holds the dashboard headline numbers for one owner.
type SalesSummary struct {
	TotalProducts int     `json:"total_products"`
	TotalSales    int     `json:"total_sales"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// DailySales is one day of the sales trend chart: revenue and transaction
// count for all sales committed on that day.
type DailySales struct {
	Date         time.Time `json:"date"`
	Revenue      float64   `json:"revenue"`
	Transactions int       `json:"transactions"`
}

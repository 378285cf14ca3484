package services

import (
	"context"
	"sort"
	"time"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Period is an inclusive time range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParsePeriod reads YYYY-MM-DD bounds. from defaults to the first day of the
// current month and to defaults to now; a given to covers the whole day.
func ParsePeriod(from, to string, now time.Time) (Period, error) {
	var p Period
	if from == "" {
		p.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		d, err := time.ParseInLocation(dateLayout, from, now.Location())
		if err != nil {
			return p, validationf("invalid from date %q", from)
		}
		p.From = d
	}
	if to == "" {
		p.To = now
	} else {
		d, err := time.ParseInLocation(dateLayout, to, now.Location())
		if err != nil {
			return p, validationf("invalid to date %q", to)
		}
		p.To = d.Add(24*time.Hour - time.Nanosecond)
	}
	if p.To.Before(p.From) {
		return p, validationf("to date is before from date")
	}
	return p, nil
}

// SummaryFilter narrows the sales summary.
type SummaryFilter struct {
	Rep      string `json:"rep,omitempty"`
	ClientID uint   `json:"client,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ClientSales is one row of the per-client breakdown.
type ClientSales struct {
	ClientID   uint            `json:"client_id"`
	ClientName string          `json:"client_name"`
	Orders     int64           `json:"orders"`
	Total      decimal.Decimal `json:"total"`
}

// SalesSummary is the answer of the sales summary report.
type SalesSummary struct {
	Period        Period          `json:"period"`
	Filters       SummaryFilter   `json:"filters"`
	OrderCount    int64           `json:"order_count"`
	TotalSold     decimal.Decimal `json:"total_sold"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	ByClient      []ClientSales   `json:"by_client"`
}

// TopItem is one product of the top items report.
type TopItem struct {
	ProductID     uint            `json:"product_id"`
	SKU           string          `json:"sku"`
	Description   string          `json:"description"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// TopItems is the answer of the top items report.
type TopItems struct {
	Period Period    `json:"period"`
	Top    int       `json:"top"`
	Items  []TopItem `json:"items"`
}

// MonthTotal is the sales of one month.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthTarget is the goal derived for one month.
type MonthTarget struct {
	Month  string          `json:"month"`
	Target decimal.Decimal `json:"target"`
}

// MTDYTD is the answer of the month/year to date report.
type MTDYTD struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	YTD     decimal.Decimal `json:"ytd"`
	MTD     decimal.Decimal `json:"mtd"`
	Monthly []MonthTotal    `json:"monthly"`
	Targets []MonthTarget   `json:"targets"`
}

// StateSales is the total sold to clients of one state.
type StateSales struct {
	UF    string          `json:"uf"`
	Total decimal.Decimal `json:"total"`
}

// Heatmap is the answer of the per-state report.
type Heatmap struct {
	Period  Period       `json:"period"`
	ByState []StateSales `json:"by_state"`
}

var targetFactor = decimal.RequireFromString("1.1")

type orderAmount struct {
	CreatedAt time.Time
	Total     decimal.Decimal
}

// ReportService answers the sales reports. Every report only sees the
// orders visible to the caller.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

func (s *ReportService) ordersIn(ctx context.Context, caller *auth.Caller, p Period) *gorm.DB {
	return ScopeOrders(s.db.WithContext(ctx).Model(&models.Order{}), caller).
		Where("orders.created_at >= ? AND orders.created_at <= ?", p.From, p.To)
}

// SalesSummary totals the orders of the period and breaks them down by client.
func (s *ReportService) SalesSummary(ctx context.Context, caller *auth.Caller, p Period, f SummaryFilter) (*SalesSummary, error) {
	q := s.ordersIn(ctx, caller, p)
	if f.Rep != "" {
		q = q.Joins("JOIN representatives ON representatives.id = orders.representative_id").
			Where("representatives.code = ?", f.Rep)
	}
	if f.ClientID != 0 {
		q = q.Where("orders.client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	out := &SalesSummary{Period: p, Filters: f, ByClient: []ClientSales{}}
	if err := q.Select("COUNT(orders.id), COALESCE(SUM(orders.total), 0)").Row().Scan(&out.OrderCount, &out.TotalSold); err != nil {
		return nil, err
	}
	out.TotalSold = out.TotalSold.Round(2)
	out.AverageTicket = decimal.Zero
	if out.OrderCount > 0 {
		out.AverageTicket = out.TotalSold.Div(decimal.NewFromInt(out.OrderCount)).Round(2)
	}

	err := q.Joins("JOIN clients ON clients.id = orders.client_id").
		Select("orders.client_id AS client_id, clients.name AS client_name, COUNT(orders.id) AS orders, COALESCE(SUM(orders.total), 0) AS total").
		Group("orders.client_id, clients.name").
		Order("total DESC").
		Scan(&out.ByClient).Error
	if err != nil {
		return nil, err
	}
	for i := range out.ByClient {
		out.ByClient[i].Total = out.ByClient[i].Total.Round(2)
	}
	return out, nil
}

// TopItems ranks products by quantity sold in the period.
func (s *ReportService) TopItems(ctx context.Context, caller *auth.Caller, p Period, top int) (*TopItems, error) {
	if top <= 0 {
		top = 20
	}
	out := &TopItems{Period: p, Top: top, Items: []TopItem{}}
	err := s.ordersIn(ctx, caller, p).
		Joins("JOIN order_lines ON order_lines.order_id = orders.id").
		Joins("JOIN products ON products.id = order_lines.product_id").
		Select("products.id AS product_id, products.sku AS sku, products.description AS description, " +
			"COALESCE(SUM(order_lines.quantity), 0) AS total_quantity, COALESCE(SUM(order_lines.subtotal), 0) AS total_value").
		Group("products.id, products.sku, products.description").
		Order("total_quantity DESC").
		Limit(top).
		Scan(&out.Items).Error
	if err != nil {
		return nil, err
	}
	for i := range out.Items {
		out.Items[i].TotalValue = out.Items[i].TotalValue.Round(2)
	}
	return out, nil
}

// MTDYTD returns the year and month to date totals, the monthly series of
// the year and a target of 110% of each month.
func (s *ReportService) MTDYTD(ctx context.Context, caller *auth.Caller, year, month int) (*MTDYTD, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, validationf("invalid month %d", month)
	}
	loc := now.Location()
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)

	var rows []orderAmount
	err := ScopeOrders(s.db.WithContext(ctx).Model(&models.Order{}), caller).
		Select("orders.created_at AS created_at, orders.total AS total").
		Where("orders.created_at >= ? AND orders.created_at <= ?", yearStart, now).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &MTDYTD{Year: year, Month: month, YTD: decimal.Zero, MTD: decimal.Zero}
	byMonth := map[string]decimal.Decimal{}
	for _, r := range rows {
		at := r.CreatedAt.In(loc)
		out.YTD = out.YTD.Add(r.Total)
		if !at.Before(monthStart) {
			out.MTD = out.MTD.Add(r.Total)
		}
		if at.Year() == year {
			key := time.Date(year, at.Month(), 1, 0, 0, 0, 0, loc).Format(dateLayout)
			byMonth[key] = byMonth[key].Add(r.Total)
		}
	}
	out.YTD = out.YTD.Round(2)
	out.MTD = out.MTD.Round(2)

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out.Monthly = make([]MonthTotal, 0, len(keys))
	out.Targets = make([]MonthTarget, 0, len(keys))
	for _, k := range keys {
		total := byMonth[k].Round(2)
		out.Monthly = append(out.Monthly, MonthTotal{Month: k, Total: total})
		out.Targets = append(out.Targets, MonthTarget{Month: k, Target: total.Mul(targetFactor).Round(2)})
	}
	return out, nil
}

// HeatmapByState totals the period's orders by client state.
func (s *ReportService) HeatmapByState(ctx context.Context, caller *auth.Caller, p Period) (*Heatmap, error) {
	out := &Heatmap{Period: p, ByState: []StateSales{}}
	err := s.ordersIn(ctx, caller, p).
		Joins("JOIN clients ON clients.id = orders.client_id").
		Select("clients.uf AS uf, COALESCE(SUM(orders.total), 0) AS total").
		Group("clients.uf").
		Order("total DESC").
		Scan(&out.ByState).Error
	if err != nil {
		return nil, err
	}
	for i := range out.ByState {
		out.ByState[i].Total = out.ByState[i].Total.Round(2)
	}
	return out, nil
}

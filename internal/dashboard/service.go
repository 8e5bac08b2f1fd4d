package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/scmdesk/scmdesk/internal/dashboard/svg"
	"github.com/scmdesk/scmdesk/internal/display"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

// PartSource lists every part.
type PartSource interface {
	All(ctx context.Context) ([]parts.Part, error)
}

// VendorSource lists every vendor.
type VendorSource interface {
	All(ctx context.Context) ([]vendors.Vendor, error)
}

// GRRSource lists every GRR header.
type GRRSource interface {
	AllGRRs(ctx context.Context) ([]procurement.GRR, error)
}

// TrendSource sums ledger flow per month.
type TrendSource interface {
	MonthlyTotals(ctx context.Context, since time.Time) ([]MonthTotal, error)
}

// Service assembles the dashboard.
type Service struct {
	parts   PartSource
	vendors VendorSource
	grrs    GRRSource
	trend   TrendSource
	cache   *listcache.Cache
	printer *message.Printer
	now     func() time.Time
}

// NewService wires the sources with the collection cache. Amounts are labelled for locale.
func NewService(p PartSource, v VendorSource, g GRRSource, t TrendSource, cache *listcache.Cache, locale language.Tag) *Service {
	return &Service{
		parts:   p,
		vendors: v,
		grrs:    g,
		trend:   t,
		cache:   cache,
		printer: message.NewPrinter(locale),
		now:     time.Now,
	}
}

// Overview returns the dashboard, cached until any of its collections change.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	now := s.now().UTC()
	key, err := s.cache.BuildKey(ctx, "dashboard:"+now.Format("2006-01"),
		listcache.Parts, listcache.Vendors, listcache.GRRs, listcache.StockMovements)
	if err != nil {
		return Overview{}, err
	}
	var out Overview
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.build(ctx, now)
	})
	return out, err
}

func (s *Service) build(ctx context.Context, now time.Time) (Overview, error) {
	var (
		partRows   []parts.Part
		vendorRows []vendors.Vendor
		grrRows    []procurement.GRR
		totals     []MonthTotal
	)
	start := firstMonth(now)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		partRows, err = s.parts.All(ctx)
		return err
	})
	g.Go(func() (err error) {
		vendorRows, err = s.vendors.All(ctx)
		return err
	})
	g.Go(func() (err error) {
		grrRows, err = s.grrs.AllGRRs(ctx)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.trend.MonthlyTotals(ctx, start)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("dashboard: %w", err)
	}

	ov := Overview{GeneratedAt: now}
	ov.KPIs, ov.Categories = s.stock(partRows)
	ov.Vendors = vendorPerformance(vendorRows, grrRows)
	ov.Trend = monthlyTrend(start, totals)
	for _, v := range vendorRows {
		if v.Status == vendors.StatusActive {
			ov.KPIs.ActiveVendors++
		}
	}
	for _, grr := range grrRows {
		if grr.Status == procurement.GRRPendingInspection || grr.Status == procurement.GRRQualityCheck {
			ov.KPIs.PendingGRRs++
		}
	}
	return ov, nil
}

func (s *Service) stock(rows []parts.Part) (KPIs, []CategoryStock) {
	kpis := KPIs{TotalParts: len(rows), StockValue: decimal.Zero}
	byCategory := map[string]*CategoryStock{}
	for _, p := range rows {
		if display.ClassifyStock(p.CurrentStock, p.MinimumStock) != display.StockGood {
			kpis.LowStockItems++
		}
		c, ok := byCategory[p.Category]
		if !ok {
			c = &CategoryStock{Category: p.Category, StockValue: decimal.Zero}
			byCategory[p.Category] = c
		}
		c.Parts++
		c.Units += p.CurrentStock
		c.StockValue = c.StockValue.Add(p.StockValue())
		kpis.StockValue = kpis.StockValue.Add(p.StockValue())
	}
	value, _ := kpis.StockValue.Round(2).Float64()
	kpis.StockValueLabel = s.printer.Sprintf("%.2f", value)

	categories := make([]CategoryStock, 0, len(byCategory))
	for _, c := range byCategory {
		categories = append(categories, *c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Category < categories[j].Category })
	return kpis, categories
}

func vendorPerformance(vendorRows []vendors.Vendor, grrRows []procurement.GRR) []VendorPerformance {
	type counts struct{ total, accepted int }
	byVendor := map[uuid.UUID]counts{}
	for _, grr := range grrRows {
		if grr.VendorID == nil {
			continue
		}
		c := byVendor[*grr.VendorID]
		c.total++
		if grr.Status == procurement.GRRAccepted {
			c.accepted++
		}
		byVendor[*grr.VendorID] = c
	}
	out := make([]VendorPerformance, 0, len(vendorRows))
	for _, v := range vendorRows {
		c := byVendor[v.ID]
		out = append(out, VendorPerformance{
			VendorCode:   v.VendorCode,
			Name:         v.Name,
			Rating:       v.Rating,
			Bucket:       display.BucketRating(v.Rating),
			GRRs:         c.total,
			AcceptedGRRs: c.accepted,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Rating.Equal(out[j].Rating) {
			return out[i].Rating.GreaterThan(out[j].Rating)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func firstMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(TrendMonths - 1), 0)
}

// monthlyTrend lays totals onto every month from start, filling gaps with zeros.
func monthlyTrend(start time.Time, totals []MonthTotal) []MonthTrend {
	byMonth := make(map[string]MonthTotal, len(totals))
	for _, t := range totals {
		byMonth[t.Month.Format("2006-01")] = t
	}
	out := make([]MonthTrend, 0, TrendMonths)
	for i := 0; i < TrendMonths; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		t := byMonth[month]
		out = append(out, MonthTrend{Month: month, Received: t.In, Issued: t.Out})
	}
	return out
}

// Chart names.
const (
	ChartMonthlyTrend = "monthly-trend"
	ChartCategories   = "inventory-by-category"
	ChartNetFlow      = "net-flow"
)

// Chart renders one named dashboard chart as SVG.
func (s *Service) Chart(ctx context.Context, name string) (template.HTML, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return "", err
	}
	switch name {
	case ChartMonthlyTrend:
		labels, received, issued := trendSeries(ov.Trend)
		return svg.Bars(0, 0, []svg.Series{
			{Label: "Received", Values: received},
			{Label: "Issued", Values: issued},
		}, labels, svg.Opts{Title: "Monthly stock movement", Description: "Quantities received on GRRs and issued on MIRs"})
	case ChartNetFlow:
		labels, received, issued := trendSeries(ov.Trend)
		net := make([]float64, len(received))
		for i := range received {
			net[i] = received[i] - issued[i]
		}
		return svg.Line(0, 0, []svg.Series{{Label: "Net", Values: net}}, labels,
			svg.Opts{Title: "Net stock flow", Description: "Received minus issued per month", ShowDots: true})
	case ChartCategories:
		if len(ov.Categories) == 0 {
			return "", fmt.Errorf("%w: no parts to chart", shared.ErrNotFound)
		}
		labels := make([]string, 0, len(ov.Categories))
		values := make([]float64, 0, len(ov.Categories))
		for _, c := range ov.Categories {
			labels = append(labels, c.Category)
			v, _ := c.StockValue.Float64()
			values = append(values, v)
		}
		return svg.Bars(0, 0, []svg.Series{{Label: "Stock value", Values: values}}, labels,
			svg.Opts{Title: "Inventory by category", Description: "Current stock value per category"})
	}
	return "", fmt.Errorf("%w: chart %q", shared.ErrNotFound, name)
}

func trendSeries(trend []MonthTrend) ([]string, []float64, []float64) {
	labels := make([]string, 0, len(trend))
	received := make([]float64, 0, len(trend))
	issued := make([]float64, 0, len(trend))
	for _, m := range trend {
		labels = append(labels, m.Month)
		received = append(received, float64(m.Received))
		issued = append(issued, float64(m.Issued))
	}
	return labels, received, issued
}

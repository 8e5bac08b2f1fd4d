package export

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the fixed documentation sheets.
const (
	SchemaSheet        = "Database Schema"
	RelationshipsSheet = "ER Relationships"
	WorkbookFilename   = "supply_chain_database.xlsx"
	headerColour       = "#D3D3D3"
	defaultColumnWidth = 18
)

// DataTable is one exported table: the sheet it lands on and the query that fills it.
type DataTable struct {
	Sheet   string
	Headers []string
	Query   string
}

// DataTables lists the data sheets in workbook order. Each query selects Headers in order and
// pulls display columns from one level of related tables.
var DataTables = []DataTable{
	{
		Sheet:   "Vendors Data",
		Headers: []string{"Vendor Code", "Name", "Address", "Phone", "Email", "Payment Terms", "Rating", "Status", "Created At"},
		Query: `SELECT vendor_code, name, address, phone, email, payment_terms, rating::text, status, created_at
			FROM vendors ORDER BY vendor_code`,
	},
	{
		Sheet: "Parts Data",
		Headers: []string{"Part No", "Description", "Category", "Unit Of Measure", "Unit Rate", "Opening Stock",
			"Current Stock", "Minimum Stock", "Order Quantity", "Created At"},
		Query: `SELECT part_no, description, category, unit_of_measure, unit_rate::text, opening_stock, current_stock,
				minimum_stock, order_quantity, created_at
			FROM parts ORDER BY part_no`,
	},
	{
		Sheet: "GRRs Data",
		Headers: []string{"GRR No", "Challan Date", "Transporter", "PO Reference", "Vendor", "Status", "Total Value",
			"Part No", "Part Description", "Challan Qty", "Accepted Qty", "Rejected Qty", "Remarks"},
		Query: `SELECT g.grr_no, g.challan_date, g.transporter_name, g.po_reference, v.name, g.status, g.total_value::text,
				p.part_no, p.description, l.challan_qty, l.accepted_qty, l.rejected_qty, g.remarks
			FROM grrs g
			LEFT JOIN vendors v ON v.id = g.vendor_id
			LEFT JOIN grr_parts l ON l.grr_id = g.id
			LEFT JOIN parts p ON p.id = l.part_id
			ORDER BY g.grr_no, p.part_no`,
	},
	{
		Sheet: "MIRs Data",
		Headers: []string{"MIR No", "Date", "Department", "Requested By", "Status", "Total Value", "Purpose",
			"Part No", "Part Description", "Qty Issued", "Unit Rate", "Issued By"},
		Query: `SELECT m.mir_no, m.date, m.department, m.requested_by, m.status, m.total_value::text, m.purpose,
				p.part_no, p.description, l.qty_issued, l.unit_rate::text, m.issued_by
			FROM mirs m
			LEFT JOIN mir_parts l ON l.mir_id = m.id
			LEFT JOIN parts p ON p.id = l.part_id
			ORDER BY m.mir_no, p.part_no`,
	},
	{
		Sheet:   "Departments Data",
		Headers: []string{"Dept Code", "Dept Name", "Head Of Dept", "Cost Center", "Active", "Created At"},
		Query: `SELECT dept_code, dept_name, head_of_dept, cost_center, is_active, created_at
			FROM departments ORDER BY dept_code`,
	},
	{
		Sheet: "Purchase Orders Data",
		Headers: []string{"PO No", "PO Date", "Vendor", "Status", "Total Amount", "Delivery Date", "Created By",
			"Approved By", "Part No", "Part Description", "Quantity", "Unit Rate", "Line Amount"},
		Query: `SELECT o.po_no, o.po_date, v.name, o.status, o.total_amount::text, o.delivery_date, o.created_by,
				o.approved_by, p.part_no, p.description, i.quantity, i.unit_rate::text, i.total_amount::text
			FROM purchase_orders o
			LEFT JOIN vendors v ON v.id = o.vendor_id
			LEFT JOIN po_items i ON i.po_id = o.id
			LEFT JOIN parts p ON p.id = i.part_id
			ORDER BY o.po_no, p.part_no`,
	},
	{
		Sheet: "Stock Movements Data",
		Headers: []string{"Movement Date", "Part No", "Part Description", "Type", "Quantity", "Reference Type",
			"Reference ID", "Unit Rate", "Remarks", "Created By"},
		Query: `SELECT s.movement_date, p.part_no, p.description, s.movement_type, s.quantity, s.reference_type,
				s.reference_id::text, s.unit_rate::text, s.remarks, s.created_by
			FROM stock_movements s
			JOIN parts p ON p.id = s.part_id
			ORDER BY s.movement_date, s.created_at`,
	},
	{
		Sheet:   "Reorder Levels Data",
		Headers: []string{"Part No", "Part Description", "Reorder Level", "Max Stock Level", "Lead Time Days", "Current Stock"},
		Query: `SELECT p.part_no, p.description, r.reorder_level, r.max_stock_level, r.lead_time_days, p.current_stock
			FROM reorder_levels r
			JOIN parts p ON p.id = r.part_id
			ORDER BY p.part_no`,
	},
	{
		Sheet: "Quality Inspections Data",
		Headers: []string{"Inspection No", "GRR No", "Part No", "Part Description", "Inspector", "Inspection Date",
			"Batch No", "Inspected", "Accepted", "Rejected", "Dimensional", "Visual", "Mechanical", "Status", "Remarks"},
		Query: `SELECT q.inspection_no, g.grr_no, p.part_no, p.description, q.inspector_name, q.inspection_date,
				q.batch_no, q.quantity_inspected, q.quantity_accepted, q.quantity_rejected, q.dimensional_result,
				q.visual_result, q.mechanical_result, q.status, q.remarks
			FROM quality_inspections q
			JOIN grr_parts l ON l.id = q.grr_part_id
			JOIN grrs g ON g.id = l.grr_id
			JOIN parts p ON p.id = l.part_id
			ORDER BY q.inspection_no`,
	},
}

// BuildWorkbook writes the schema and relationship sheets followed by one sheet per table in
// DataTables order. Tables with no rows get no sheet. rows is keyed by sheet name.
func BuildWorkbook(s Schema, rows map[string][][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColour}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SchemaSheet); err != nil {
		return nil, err
	}
	schemaRows := make([][]any, 0, 128)
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			schemaRows = append(schemaRows, []any{t.Name, c.Name, c.Type, yesNo(c.Nullable), c.Default, c.Description})
		}
	}
	if err := writeSheet(f, SchemaSheet, header,
		[]string{"Table Name", "Column Name", "Data Type", "Nullable", "Default Value", "Description"}, schemaRows); err != nil {
		return nil, err
	}

	relRows := make([][]any, 0, len(s.Relationships))
	for _, r := range s.Relationships {
		relRows = append(relRows, []any{r.From, r.FromColumn, r.To, r.ToColumn, r.Kind})
	}
	if err := addSheet(f, RelationshipsSheet, header,
		[]string{"From Table", "From Column", "To Table", "To Column", "Relationship Type"}, relRows); err != nil {
		return nil, err
	}

	for _, t := range DataTables {
		data := rows[t.Sheet]
		if len(data) == 0 {
			continue
		}
		if err := addSheet(f, t.Sheet, header, t.Headers, data); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheet(f *excelize.File, name string, style int, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("export: sheet %s: %w", name, err)
	}
	return writeSheet(f, name, style, headers, rows)
}

func writeSheet(f *excelize.File, name string, style int, headers []string, rows [][]any) error {
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("export: %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("export: %s row %d: %w", name, i+2, err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(name, "A", lastCol, defaultColumnWidth)
}

// cellValue turns driver values into something a spreadsheet cell shows sensibly.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		return x.String()
	case uuid.UUID:
		return x.String()
	case [16]byte:
		return uuid.UUID(x).String()
	case bool:
		return yesNo(x)
	default:
		return v
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

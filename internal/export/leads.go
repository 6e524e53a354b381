package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// LeadColumns is the leads CSV schema.
var LeadColumns = []string{
	"Run_Date", "Lead_Tier", "Company_Name", "Domain", "Niche",
	"Email", "Email_Verified", "Phone", "Contact_Page",
	"Total_Score", "Automation_Score", "Biz_Fit_Score", "Budget_Score", "Contact_Score",
	"Automation_Gaps", "Revenue_Signals", "CMS", "Page_Load_Time", "Page_Size_KB",
}

// requiredColumns must be present for a leads file to be usable by the campaign.
var requiredColumns = []string{"Domain", "Email", "Niche", "Total_Score"}

// Email_Verified markers.
const (
	VerifiedYes  = "✓"
	VerifiedNo   = "✗"
	VerifiedNone = "—"
)

const listSep = "; "

// LeadRow is one qualified lead as exported.
type LeadRow struct {
	RunDate        string
	Tier           string
	Company        string
	Domain         string
	Niche          string
	Emails         []string
	EmailVerified  string
	Phone          string
	ContactPage    string
	Total          int
	Automation     int
	BizFit         int
	Budget         int
	Contact        int
	Gaps           []string
	RevenueSignals []string
	CMS            string
	LoadTime       float64
	SizeKB         float64
}

// FirstEmail returns the preferred address, or "".
func (r LeadRow) FirstEmail() string {
	if len(r.Emails) == 0 {
		return ""
	}
	return r.Emails[0]
}

func (r LeadRow) record() []string {
	signals := "None"
	if len(r.RevenueSignals) > 0 {
		signals = strings.Join(r.RevenueSignals, listSep)
	}
	return []string{
		r.RunDate,
		r.Tier,
		r.Company,
		r.Domain,
		r.Niche,
		strings.Join(r.Emails, listSep),
		r.EmailVerified,
		r.Phone,
		r.ContactPage,
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Automation),
		strconv.Itoa(r.BizFit),
		strconv.Itoa(r.Budget),
		strconv.Itoa(r.Contact),
		strings.Join(r.Gaps, listSep),
		signals,
		r.CMS,
		strconv.FormatFloat(r.LoadTime, 'f', 2, 64) + "s",
		strconv.FormatFloat(r.SizeKB, 'f', -1, 64),
	}
}

// LeadFiles returns the files matching glob, newest date first.
func LeadFiles(glob string) ([]string, error) {
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad leads pattern %q: %w", glob, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// ReadLeads parses every row of the given leads files. A file missing a
// required column, or a row with a malformed number, fails the whole read.
func ReadLeads(paths ...string) ([]LeadRow, error) {
	var out []LeadRow
	for _, path := range paths {
		rows, err := readLeadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func readLeadFile(path string) ([]LeadRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening leads file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, col)
		}
	}

	var out []LeadRow
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		row, err := parseLead(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseLead(rec []string, idx map[string]int) (LeadRow, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	num := func(col string) (int, error) {
		v := get(col)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("column %s: %q is not an integer", col, v)
		}
		return n, nil
	}

	row := LeadRow{
		RunDate:       get("Run_Date"),
		Tier:          get("Lead_Tier"),
		Company:       get("Company_Name"),
		Domain:        get("Domain"),
		Niche:         get("Niche"),
		Emails:        splitList(get("Email")),
		EmailVerified: get("Email_Verified"),
		Phone:         get("Phone"),
		ContactPage:   get("Contact_Page"),
		Gaps:          splitList(get("Automation_Gaps")),
		CMS:           get("CMS"),
	}
	if s := get("Revenue_Signals"); s != "None" {
		row.RevenueSignals = splitList(s)
	}

	var err error
	for _, f := range []struct {
		col string
		dst *int
	}{
		{"Total_Score", &row.Total},
		{"Automation_Score", &row.Automation},
		{"Biz_Fit_Score", &row.BizFit},
		{"Budget_Score", &row.Budget},
		{"Contact_Score", &row.Contact},
	} {
		if *f.dst, err = num(f.col); err != nil {
			return LeadRow{}, err
		}
	}
	if get("Total_Score") == "" {
		row.Total = row.Automation
	}

	if kb := get("Page_Size_KB"); kb != "" {
		if row.SizeKB, err = strconv.ParseFloat(kb, 64); err != nil {
			return LeadRow{}, fmt.Errorf("column Page_Size_KB: %q is not a number", kb)
		}
	}
	if lt := strings.TrimSuffix(get("Page_Load_Time"), "s"); lt != "" {
		if row.LoadTime, err = strconv.ParseFloat(lt, 64); err != nil {
			return LeadRow{}, fmt.Errorf("column Page_Load_Time: %q is not a duration", lt)
		}
	}
	return row, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

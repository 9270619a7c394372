package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/ordo"
)

//go:embed templates/*.html
var templateFS embed.FS

var printTmpl = template.Must(template.New("print_ordo.html").Funcs(template.FuncMap{
	"colorClass": func(c ordo.Color) string {
		if c == "" {
			return "green"
		}
		return string(c)
	},
}).ParseFS(templateFS, "templates/print_ordo.html"))

type ordoResponse struct {
	Month  int             `json:"month"`
	Year   int             `json:"year"`
	Season ordo.SeasonInfo `json:"season"`
	Days   []ordo.Day      `json:"days"`
}

// monthYear reads ?month=&year=, defaulting to the current month in loc.
func monthYear(r *http.Request, loc *time.Location) (int, int, error) {
	now := time.Now().In(loc)
	q := r.URL.Query()
	month, err := intParam(q, "month", int(now.Month()))
	if err != nil {
		return 0, 0, err
	}
	year, err := intParam(q, "year", now.Year())
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month must be 1-12, got %d", month)
	}
	if year < 1583 || year > 9999 {
		return 0, 0, fmt.Errorf("year out of range: %d", year)
	}
	return month, year, nil
}

func (s *Server) handleOrdo(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days := ordo.GetOrdoForMonth(month, year)
	writeJSON(w, http.StatusOK, ordoResponse{
		Month:  month,
		Year:   year,
		Season: ordo.Season(time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC)),
		Days:   days,
	})
}

// handleOrdoICS exports a whole ?year= or, with ?month=, a single month.
func (s *Server) handleOrdoICS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1583 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}

	var days []ordo.Day
	name := fmt.Sprintf("ordo-%d", year)
	if q.Get("month") != "" {
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "month must be 1-12")
			return
		}
		days = ordo.GetOrdoForMonth(month, year)
		name = fmt.Sprintf("ordo-%d-%02d", year, month)
	} else {
		days = ordo.GetOrdoForRange(
			time.Date(year, time.January, 1, 12, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 12, 0, 0, 0, time.UTC),
		)
	}

	body := ics.ExportOrdo(days, ics.ExportOptions{Name: "Liturgical calendar " + strconv.Itoa(year), Location: s.loc})
	writeCalendar(w, name+".ics", body)
}

func writeCalendar(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type printPage struct {
	Title  string
	Season ordo.SeasonInfo
	Days   []ordo.Day
	Unit   string
}

// handlePrintOrdo renders the printable month page captured by the capture
// command.
func (s *Server) handlePrintOrdo(w http.ResponseWriter, r *http.Request) {
	month, year, err := monthYear(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := printPage{
		Title:  fmt.Sprintf("%s %d", time.Month(month), year),
		Season: ordo.Season(time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC)),
		Days:   ordo.GetOrdoForMonth(month, year),
		Unit:   sessionFrom(r.Context()).Unit,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := printTmpl.Execute(w, page); err != nil {
		appLog.Error("failed to render print page", err, "month", month, "year", year)
	}
}

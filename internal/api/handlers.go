package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/importer"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/report"
)

const (
	msgBadUpload = "bad file upload. please use multipart/form-data."
	msgNoFile    = "No file uploaded."
)

type monthlyRow struct {
	Year    int         `json:"year"`
	Month   int         `json:"month"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Net     json.Number `json:"net"`
}

type merchantRow struct {
	Merchant string      `json:"merchant"`
	Spent    json.Number `json:"spent"`
}

type expenseRow struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Merchant    string      `json:"merchant"`
	Spent       json.Number `json:"spent"`
}

// money renders an exact decimal as a bare JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ImportCSV accepts a statement in the multipart field "file".
func (h *Handler) ImportCSV(c *gin.Context) {
	if c.ContentType() != "multipart/form-data" {
		badRequest(c, msgBadUpload)
		return
	}
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || (err == nil && fh.Size == 0) {
		badRequest(c, msgNoFile)
		return
	}
	if err != nil {
		badRequest(c, msgBadUpload)
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reading upload"})
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	rep, err := h.ingest.Import(ctx, fh.Filename, f)
	if err != nil {
		var se *importer.SchemaError
		if errors.As(err, &se) {
			badRequest(c, se.Error())
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("file", fh.Filename).Msg("import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": rep.Accepted})
}

// MonthlySummary totals recent months; ?months= picks the window.
func (h *Handler) MonthlySummary(c *gin.Context) {
	months := 0
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "months must be an integer")
			return
		}
		months = n
	}

	sums, err := h.reports.Monthly(c.Request.Context(), months)
	if err != nil {
		h.reportError(c, err)
		return
	}
	out := make([]monthlyRow, len(sums))
	for i, s := range sums {
		out[i] = monthlyRow{
			Year:    s.Year,
			Month:   int(s.Month),
			Income:  money(s.Income),
			Expense: money(s.Expense),
			Net:     money(s.Net),
		}
	}
	c.JSON(http.StatusOK, out)
}

// TopMerchants ranks merchants by spend for ?month=YYYY-MM.
func (h *Handler) TopMerchants(c *gin.Context) {
	rows, err := h.reports.TopMerchants(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.reportError(c, err)
		return
	}
	out := make([]merchantRow, len(rows))
	for i, r := range rows {
		out[i] = merchantRow{Merchant: r.Merchant, Spent: money(r.Spent)}
	}
	c.JSON(http.StatusOK, out)
}

// Biggest lists the largest expenses for ?month=YYYY-MM.
func (h *Handler) Biggest(c *gin.Context) {
	rows, err := h.reports.Biggest(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenseRows(rows))
}

// Fraud lists expenses at or above the fraud threshold for ?month=YYYY-MM.
func (h *Handler) Fraud(c *gin.Context) {
	rows, err := h.reports.Fraud(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenseRows(rows))
}

func (h *Handler) reportError(c *gin.Context, err error) {
	if errors.Is(err, report.ErrBadMonth) {
		badRequest(c, err.Error())
		return
	}
	log := logger.FromContext(c.Request.Context())
	log.Error().Err(err).Msg("report failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

func expenseRows(rows []report.Expense) []expenseRow {
	out := make([]expenseRow, len(rows))
	for i, r := range rows {
		out[i] = expenseRow{
			Date:        r.Date.Format("2006-01-02"),
			Description: r.Description,
			Merchant:    r.Merchant,
			Spent:       money(r.Spent),
		}
	}
	return out
}

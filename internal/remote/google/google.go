// Package google mirrors the record store into a Google Sheets
// spreadsheet, one tab per entity type with a header row of record field
// names. It is the remote side the sync worker writes to; the SQLite
// store stays the source of truth.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tirelire/internal/core"
	"tirelire/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// title -> sheetId, filled lazily from spreadsheet metadata
	sheetIDs map[string]int64
}

var _ records.Store = (*Client)(nil)

// Tab titles per entity type.
var sheetTitles = map[string]string{
	records.TypeTransaction:         "Transactions",
	records.TypeRecurringExpense:    "Recurrentes",
	records.TypeSavingsGoal:         "Objectifs",
	records.TypeSavingsContribution: "Versements",
	records.TypeBudgets:             "Budgets",
	records.TypeSalaires:            "Salaires",
}

// Column order per entity type. The id column must come first; deletes and
// updates locate rows by it.
var sheetColumns = map[string][]string{
	records.TypeTransaction: {
		records.FieldID, records.FieldDate, records.FieldDescription,
		records.FieldCategory, records.FieldAmount, records.FieldPayer,
	},
	records.TypeRecurringExpense: {
		records.FieldID, records.FieldDescription, records.FieldAmount,
		records.FieldCategory, records.FieldPayer, records.FieldFrequency,
		records.FieldStartDate, records.FieldNextDueDate, records.FieldIsActive,
		records.FieldAutoGenerate, records.FieldEndDate, records.FieldLastProcessedDate,
	},
	records.TypeSavingsGoal: {
		records.FieldID, records.FieldName, records.FieldDescription,
		records.FieldTargetAmount, records.FieldCurrentAmount, records.FieldStartDate,
		records.FieldTargetDate, records.FieldCategory, records.FieldPriority,
		records.FieldMonthlyContribution, records.FieldIsActive,
	},
	records.TypeSavingsContribution: {
		records.FieldID, records.FieldGoalID, records.FieldAmount,
		records.FieldDate, records.FieldNote,
	},
	records.TypeSalaires: {
		records.FieldID, records.FieldPartner1, records.FieldPartner2,
		records.FieldUpdatedAt,
	},
}

func init() {
	cols := []string{records.FieldID}
	for _, c := range core.Categories() {
		cols = append(cols, string(c))
	}
	sheetColumns[records.TypeBudgets] = append(cols, records.FieldUpdatedAt)
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Save writes the record to its tab, updating the row with the same id or
// appending a new one. Re-running a save is idempotent, which is what the
// reconciliation pass relies on.
func (c *Client) Save(ctx context.Context, entityType string, rec records.Record) error {
	title, cols, err := layout(entityType)
	if err != nil {
		return err
	}
	if err := c.ensureHeader(ctx, title, cols); err != nil {
		return err
	}

	row := make([]any, len(cols))
	for i, col := range cols {
		row[i] = cellValue(rec[col])
	}

	rowNum, err := c.findRow(ctx, title, rec.ID())
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{row}}
	if rowNum > 0 {
		rng := fmt.Sprintf("%s!A%d", title, rowNum)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row in %s: %w", title, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:A", title)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", title, err)
	}
	return nil
}

// SaveBatch writes the records one by one. The spreadsheet offers no
// transaction; atomicity lives in the SQLite store, this side converges
// through the reconciliation pass.
func (c *Client) SaveBatch(ctx context.Context, ops []records.SaveOp) error {
	for _, op := range ops {
		if err := c.Save(ctx, op.EntityType, op.Record); err != nil {
			return err
		}
	}
	return nil
}

// Query reads a tab and rebuilds records from the header row. Blank rows
// are skipped.
func (c *Client) Query(ctx context.Context, entityType string, pred records.Predicate) ([]records.Record, error) {
	title, cols, err := layout(entityType)
	if err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("%s!A2:%s", title, columnLetter(len(cols)-1))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", title, err)
	}

	var out []records.Record
	for _, row := range resp.Values {
		rec := make(records.Record, len(cols))
		for i, col := range cols {
			if i >= len(row) {
				break
			}
			if s, ok := row[i].(string); ok && s == "" {
				continue
			}
			rec[col] = row[i]
		}
		if rec.ID() == "" {
			continue
		}
		if pred.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete removes the rows holding the given ids. Missing ids are ignored.
func (c *Client) Delete(ctx context.Context, entityType string, ids []string) error {
	title, _, err := layout(entityType)
	if err != nil {
		return err
	}
	sheetID, err := c.sheetID(ctx, title)
	if err != nil {
		return err
	}

	for _, id := range ids {
		rowNum, err := c.findRow(ctx, title, id)
		if err != nil {
			return err
		}
		if rowNum <= 0 {
			continue
		}
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				DeleteDimension: &gsheet.DeleteDimensionRequest{
					Range: &gsheet.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: int64(rowNum - 1),
						EndIndex:   int64(rowNum),
					},
				},
			}},
		}
		_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("delete row from %s: %w", title, err)
		}
	}
	return nil
}

// findRow returns the 1-based row number of the id in column A, 0 when
// absent.
func (c *Client) findRow(ctx context.Context, title, id string) (int, error) {
	if id == "" {
		return 0, errors.New("record without id")
	}
	rng := fmt.Sprintf("%s!A:A", title)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ids from %s: %w", title, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) ensureHeader(ctx context.Context, title string, cols []string) error {
	rng := fmt.Sprintf("%s!1:1", title)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", title, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", title, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			c.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	id, ok := c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", title)
	}
	return id, nil
}

func layout(entityType string) (string, []string, error) {
	title, ok := sheetTitles[entityType]
	if !ok {
		return "", nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	return title, sheetColumns[entityType], nil
}

func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return x
	}
}

// columnLetter maps a zero-based column index to its A1 letter.
func columnLetter(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

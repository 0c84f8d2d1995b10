package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/youthcamp/registration-api/internal/registration"
)

var header = []string{
	"id", "first_name", "last_name", "email", "birth_date", "gender", "type",
	"youth_group", "accommodation", "wednesday", "thursday", "friday",
	"allergies", "first_time", "note", "created_at",
}

// WriteCSV writes rows with a header line. The UTF-8 byte order mark makes
// spreadsheet programs pick the right encoding.
func WriteCSV(w io.Writer, rows []registration.ExportRow) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.FirstName,
			r.LastName,
			r.Email,
			r.BirthDate,
			r.Gender,
			r.Type,
			r.YouthGroup,
			r.Accommodation,
			r.Wednesday,
			r.Thursday,
			r.Friday,
			r.Allergies,
			strconv.FormatBool(r.FirstTime),
			r.Note,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

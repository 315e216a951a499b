package attendance

import (
	"bufio"
	"io"
	"strings"
	"time"

	"campus-events/internal/models"
)

const csvHeader = "Name,Email,Registration ID,Ticket ID,RSVP Time,Checked-in,Check-in Time"

// WriteCSV writes rows as an attendance export. Every value is quoted and
// embedded quotes are doubled; missing values are empty strings.
func WriteCSV(w io.Writer, rows []models.AttendanceRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		var name, email, checkedInAt string
		if r.Profile != nil {
			name, email = r.Profile.FullName, r.Profile.Email
		}
		if r.CheckedInAt != nil {
			checkedInAt = r.CheckedInAt.UTC().Format(time.RFC3339Nano)
		}
		checked := "No"
		if r.IsCheckedIn {
			checked = "Yes"
		}

		fields := []string{
			name,
			email,
			r.RegistrationID,
			r.TicketID,
			r.RSVPTime.UTC().Format(time.RFC3339Nano),
			checked,
			checkedInAt,
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(f))
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

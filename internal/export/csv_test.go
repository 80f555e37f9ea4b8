package export

import (
	"strings"
	"testing"
	"time"

	"github.com/devports/go-lending-backend/internal/domain"
)

func TestDevicesCSV_Empty(t *testing.T) {
	got := DevicesCSV(nil)
	want := `"ID","Model Name","OS","OS Version","Manufacturer","UUID","Status","Current User","Borrowed At","Registered At"`
	if got != want {
		t.Fatalf("header mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestDevicesCSV_Rows(t *testing.T) {
	registered := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	borrowed := time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC)
	holder := "Alice"

	devices := []domain.Device{
		{
			DisplayID:       "A00001",
			ModelName:       "Pixel 8",
			OSName:          "Android",
			OSVersion:       "14",
			Manufacturer:    "Google",
			UUID:            "hw-1",
			Status:          domain.StatusInUse,
			CurrentUserName: &holder,
			BorrowedAt:      &borrowed,
			RegisteredAt:    registered,
		},
		{
			DisplayID:    "I00001",
			ModelName:    "iPhone 15",
			OSName:       "iOS",
			OSVersion:    "17.4",
			Manufacturer: "Apple",
			UUID:         "hw-2",
			Status:       domain.StatusAvailable,
			RegisteredAt: registered,
		},
	}

	got := DevicesCSV(devices)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), got)
	}
	wantRow1 := `"A00001","Pixel 8","Android","14","Google","hw-1","in_use","Alice","2024-03-02T14:30:00Z","2024-03-01T09:00:00Z"`
	if lines[1] != wantRow1 {
		t.Fatalf("row 1 mismatch:\n got: %s\nwant: %s", lines[1], wantRow1)
	}
	wantRow2 := `"I00001","iPhone 15","iOS","17.4","Apple","hw-2","available","-","-","2024-03-01T09:00:00Z"`
	if lines[2] != wantRow2 {
		t.Fatalf("row 2 mismatch:\n got: %s\nwant: %s", lines[2], wantRow2)
	}
}

func TestDevicesCSV_QuoteEscaping(t *testing.T) {
	devices := []domain.Device{
		{
			DisplayID:    "A00002",
			ModelName:    `Tab 10" Pro`,
			OSName:       "Android",
			Status:       domain.StatusAvailable,
			RegisteredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}
	got := DevicesCSV(devices)
	if !strings.Contains(got, `"Tab 10"" Pro"`) {
		t.Fatalf("expected embedded quotes doubled, got:\n%s", got)
	}
}

package biz

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		want    Filter
		wantErr string
	}{
		{
			name:   "empty",
			params: map[string]string{},
			want:   Filter{},
		},
		{
			name: "all keys",
			params: map[string]string{
				"category":    "Invoices",
				"subCategory": "Vendors",
				"year":        "2024",
				"month":       "3",
				"status":      "Approved",
				"fileType":    "PDF",
				"uploadedBy":  "u-1",
				"tag":         "q1",
				"search":      "  budget ",
			},
			want: Filter{
				Category:    "Invoices",
				SubCategory: "Vendors",
				Year:        2024,
				Month:       3,
				Status:      StatusApproved,
				FileType:    FileTypePDF,
				UploadedBy:  "u-1",
				Tag:         "q1",
				Search:      "budget",
			},
		},
		{
			name:   "snake case aliases",
			params: map[string]string{"sub_category": "Vendors", "file_type": "csv", "uploaded_by": "u-2"},
			want:   Filter{SubCategory: "Vendors", FileType: FileTypeCSV, UploadedBy: "u-2"},
		},
		{
			name:   "unknown and empty keys dropped",
			params: map[string]string{"owner": "x", "category": "", "year": " "},
			want:   Filter{},
		},
		{name: "year not a number", params: map[string]string{"year": "twenty"}, wantErr: "year"},
		{name: "year out of range", params: map[string]string{"year": "1850"}, wantErr: "year"},
		{name: "month out of range", params: map[string]string{"month": "0"}, wantErr: "month"},
		{name: "unknown status", params: map[string]string{"status": "draft"}, wantErr: "status"},
		{name: "unknown file type", params: map[string]string{"fileType": "image"}, wantErr: "fileType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, tt.wantErr, FieldOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCursor_RoundTripAndMalformed(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC), ID: "abc"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, "abc", decoded.ID)

	for _, token := range []string{"!!!", "bm90IGpzb24", "eyJ0IjoieCIsImlkIjoiYSJ9", "eyJ0IjoiMjAyNC0wMS0wMVQwMDowMDowMFoifQ"} {
		_, err := DecodeCursor(token)
		assert.Equal(t, "cursor", FieldOf(err), token)
	}
}

func TestNewPageRequest(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{10, 10},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			req, err := NewPageRequest("", tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Limit)
			assert.Nil(t, req.Cursor)
		})
	}

	_, err := NewPageRequest("garbage", 10)
	assert.Equal(t, "cursor", FieldOf(err))
}

func TestNewPage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]*FileRecord, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, &FileRecord{ID: fmt.Sprint(i), CreatedAt: base.Add(-time.Duration(i) * time.Hour)})
	}

	full := NewPage(rows[:4], 4)
	assert.Len(t, full.Items, 4)
	assert.Nil(t, full.NextCursor, "exactly limit rows means no further page")

	more := NewPage(rows, 4)
	assert.Len(t, more.Items, 4)
	require.NotNil(t, more.NextCursor)

	c, err := DecodeCursor(*more.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "3", c.ID)
	assert.True(t, rows[3].CreatedAt.Equal(c.CreatedAt))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusDraft, StatusPendingReview, true},
		{StatusDraft, StatusApproved, false},
		{StatusPendingReview, StatusApproved, true},
		{StatusApproved, StatusDraft, false},
		{StatusApproved, StatusArchived, true},
		{StatusArchived, StatusDraft, true},
		{StatusArchived, StatusApproved, false},
		{StatusApproved, StatusApproved, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.False(t, Status("Published").Valid())
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{" a", "b", "", "a "}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

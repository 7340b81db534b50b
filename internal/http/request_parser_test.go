package http

import (
	"errors"
	"net/url"
	"testing"

	"shoebox/internal/core"
)

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Granularity
		wantErr bool
	}{
		{"", "", false},
		{"auto", "", false},
		{"AUTO", "", false},
		{"month", core.GranularityMonth, false},
		{" Year ", core.GranularityYear, false},
		{"week", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGranularity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    core.DateRange
		wantErr error
	}{
		{name: "empty", query: ""},
		{name: "open end", query: "start=2024-02-01", want: core.DateRange{Start: core.NewDate(2024, 2, 1)}},
		{name: "closed", query: "start=2024-02-01&end=2024-02-29", want: core.MonthRange(2024, 2)},
		{name: "inverted", query: "start=2024-03-01&end=2024-02-01", wantErr: core.ErrInvalidRange},
		{name: "garbage", query: "end=soon", wantErr: errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseRange(q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Start.Equal(tt.want.Start) || !got.End.Equal(tt.want.End) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseSearch(t *testing.T) {
	srv := &Server{pageSize: 25}

	q, _ := url.ParseQuery("title=coffee&min=1,50&order=asc")
	f, order, limit, cursor, err := srv.parseSearch(q)
	if err != nil {
		t.Fatalf("parseSearch: %v", err)
	}
	if f.Title != "coffee" || f.MinAmountCents == nil || *f.MinAmountCents != 150 || f.MaxAmountCents != nil {
		t.Errorf("filters = %+v", f)
	}
	if order != core.OrderAsc || limit != 25 || cursor != nil {
		t.Errorf("order/limit/cursor = %s/%d/%v", order, limit, cursor)
	}

	c := core.Cursor{Date: core.NewDate(2024, 1, 2), ID: core.NewTransactionID()}
	q = url.Values{"cursor": {c.Encode()}}
	_, _, _, cursor, err = srv.parseSearch(q)
	if err != nil {
		t.Fatalf("parseSearch cursor: %v", err)
	}
	if cursor == nil || cursor.ID != c.ID || !cursor.Date.Equal(c.Date) {
		t.Errorf("cursor = %+v, want %+v", cursor, c)
	}
}

func TestParseAmountBoundAllowsZero(t *testing.T) {
	tests := []struct {
		query string
		name  string
		want  int64
	}{
		{"min=0", "min", 0},
		{"max=0.00", "max", 0},
		{"min=-3", "min", -300},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseAmountBound(q, tt.name)
			if err != nil {
				t.Fatalf("parseAmountBound: %v", err)
			}
			if got == nil || *got != tt.want {
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidMonth, 400},
		{badRequest("x"), 400},
		{errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

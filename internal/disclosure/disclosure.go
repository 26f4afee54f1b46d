// Package disclosure models corporate disclosure events ("relevant facts")
// such as dividend payments and merger announcements.
package disclosure

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownStockType = errors.New("unknown stock type")
)

type EventType string

const (
	DividendPayment         EventType = "Dividend Payment"
	ResultAnnouncement      EventType = "Result Announcement"
	MergerAnnouncement      EventType = "Merger Announcement"
	AcquisitionAnnouncement EventType = "Acquisition Announcement"
	Other                   EventType = "Other"
)

var eventTypes = []EventType{DividendPayment, ResultAnnouncement, MergerAnnouncement, AcquisitionAnnouncement, Other}

func (e *EventType) UnmarshalText(b []byte) error {
	for _, known := range eventTypes {
		if string(b) == string(known) {
			*e = known
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownEventType, b)
}

type StockType string

const (
	Preferred StockType = "PREFERENCIAL"
	Common    StockType = "ORDINARIA"
)

func (s *StockType) UnmarshalText(b []byte) error {
	switch StockType(b) {
	case Preferred, Common:
		*s = StockType(b)
		return nil
	}
	return fmt.Errorf("%w %q", ErrUnknownStockType, b)
}

const dateLayout = time.DateOnly

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(dateLayout)), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format(dateLayout))), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid date %s, want a string", b)
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(dateLayout, string(b))
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", b)
	}
	d.Time = t
	return nil
}

type Address struct {
	Country string `json:"Country"`
	State   string `json:"State"`
	City    string `json:"City"`
	Street  string `json:"Street"`
	Number  string `json:"Number"`
	ZipCode string `json:"ZipCode"`
}

type DividendInfo struct {
	Type        StockType `json:"Type"`
	Amount      float64   `json:"Divident"`
	RecordDate  Date      `json:"Date"`
	PaymentDate Date      `json:"PaymentDate"`
}

// RelevantFact is one disclosure published by a company.
type RelevantFact struct {
	Company  string        `json:"Company"`
	Date     Date          `json:"Date"`
	Type     EventType     `json:"Type"`
	Address  Address       `json:"Local"`
	Dividend *DividendInfo `json:"DividendInfo,omitempty"`
}

// Validate reports every problem with f. Dividend details are only allowed on
// dividend payments.
func (f RelevantFact) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(f.Company) == "" {
		result = multierror.Append(result, errors.New("company is required"))
	}
	if f.Date.IsZero() {
		result = multierror.Append(result, errors.New("date is required"))
	}
	if f.Type == "" {
		result = multierror.Append(result, errors.New("event type is required"))
	}
	if f.Address.Country == "" {
		result = multierror.Append(result, errors.New("address country is required"))
	}

	if d := f.Dividend; d != nil {
		if f.Type != DividendPayment {
			result = multierror.Append(result, fmt.Errorf("dividend details given for a %q event", f.Type))
		}
		if d.Amount < 0 {
			result = multierror.Append(result, fmt.Errorf("dividend amount must not be negative, got %g", d.Amount))
		}
		if !d.PaymentDate.IsZero() && d.PaymentDate.Before(d.RecordDate.Time) {
			result = multierror.Append(result, errors.New("dividend payment date is before the record date"))
		}
	}

	return result.ErrorOrNil()
}

// Decode reads a single fact or a JSON array of facts.
func Decode(r io.Reader) ([]RelevantFact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var facts []RelevantFact
		if err := json.Unmarshal(data, &facts); err != nil {
			return nil, fmt.Errorf("decoding facts: %w", err)
		}
		return facts, nil
	}

	var fact RelevantFact
	if err := json.Unmarshal(data, &fact); err != nil {
		return nil, fmt.Errorf("decoding fact: %w", err)
	}
	return []RelevantFact{fact}, nil
}

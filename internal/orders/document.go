package orders

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// record is the persisted JSON shape of one order.
type record struct {
	RequestID    string     `json:"requestId"`
	Car          string     `json:"car"`
	Parts        string     `json:"parts"`
	PhotoOrVIN   string     `json:"photoOrVin"`
	PhotoKind    string     `json:"photoKind,omitempty"`
	PhotoCaption *string    `json:"photoCaption,omitempty"`
	Contact      string     `json:"contact"`
	City         string     `json:"city"`
	Status       string     `json:"status"`
	Date         time.Time  `json:"date"`
	ClaimedBy    int64      `json:"claimedBy,omitempty"`
	ClaimedAt    *time.Time `json:"claimedAt,omitempty"`
}

const legacyNotSpecified = "Не указано"

func toRecord(o Order) record {
	r := record{
		RequestID:  o.RequestID,
		Car:        o.Car,
		Parts:      o.Parts,
		PhotoOrVIN: o.PhotoOrVIN.Value,
		PhotoKind:  string(o.PhotoOrVIN.Kind),
		Contact:    o.Contact,
		City:       o.City,
		Status:     string(o.Status),
		Date:       o.CreatedAt,
		ClaimedBy:  o.ClaimedBy,
	}
	if o.PhotoOrVIN.IsMedia() {
		caption := o.PhotoOrVIN.Caption
		r.PhotoCaption = &caption
	}
	if !o.ClaimedAt.IsZero() {
		at := o.ClaimedAt
		r.ClaimedAt = &at
	}
	return r
}

func fromRecord(customerID int64, r record) Order {
	o := Order{
		RequestID:  r.RequestID,
		CustomerID: customerID,
		Car:        r.Car,
		Parts:      r.Parts,
		PhotoOrVIN: attachmentFromRecord(r),
		Contact:    r.Contact,
		City:       r.City,
		Status:     Status(r.Status),
		CreatedAt:  r.Date,
		ClaimedBy:  r.ClaimedBy,
	}
	if st, ok := ParseStatus(r.Status); ok {
		o.Status = st
	}
	if r.ClaimedAt != nil {
		o.ClaimedAt = *r.ClaimedAt
	}
	return o
}

// attachmentFromRecord restores the tagged variant. Documents written before
// photoKind existed only carried photoCaption for photos.
func attachmentFromRecord(r record) Attachment {
	caption := ""
	if r.PhotoCaption != nil {
		caption = *r.PhotoCaption
	}
	switch AttachmentKind(r.PhotoKind) {
	case AttachmentMedia:
		return MediaAttachment(r.PhotoOrVIN, caption)
	case AttachmentUnspecified:
		return Unspecified()
	case AttachmentText:
		return TextAttachment(r.PhotoOrVIN)
	}
	switch {
	case r.PhotoOrVIN == NotSpecified || r.PhotoOrVIN == legacyNotSpecified:
		return Unspecified()
	case r.PhotoCaption != nil:
		return MediaAttachment(r.PhotoOrVIN, caption)
	default:
		return TextAttachment(r.PhotoOrVIN)
	}
}

// Encode writes s as the JSON document keyed by customer id.
func Encode(w io.Writer, s Snapshot) error {
	doc := make(map[string][]record, len(s))
	for id, list := range s {
		recs := make([]record, 0, len(list))
		for _, o := range list {
			recs = append(recs, toRecord(o))
		}
		doc[strconv.FormatInt(id, 10)] = recs
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("orders: encode: %w", err)
	}
	return nil
}

// Decode reads a JSON document produced by Encode or by the legacy bot.
func Decode(r io.Reader) (Snapshot, error) {
	var doc map[string][]record
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("orders: decode: %w", err)
	}
	out := make(Snapshot, len(doc))
	for key, recs := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("orders: decode: customer key %q: %w", key, err)
		}
		list := make([]Order, 0, len(recs))
		for _, rec := range recs {
			list = append(list, fromRecord(id, rec))
		}
		out[id] = list
	}
	return out, nil
}

// CustomerIDs returns the snapshot's customer ids in ascending order.
func (s Snapshot) CustomerIDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

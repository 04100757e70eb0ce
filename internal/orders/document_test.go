package orders

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleSnapshot() Snapshot {
	created := time.Date(2026, 10, 15, 10, 0, 0, 123000000, time.UTC)
	claimed := created.Add(time.Hour)
	return Snapshot{
		123456: {
			{
				RequestID: "a1b2c3d4", CustomerID: 123456,
				Car: "Toyota Camry 2015 2.5", Parts: "front brake pads",
				PhotoOrVIN: MediaAttachment("AgACAgIAAxkBAAIB", "left side"),
				Contact: "+79780000000", City: "Simferopol",
				Status: StatusInProgress, CreatedAt: created,
				ClaimedBy: 42, ClaimedAt: claimed,
			},
			{
				RequestID: "0f0e0d0c", CustomerID: 123456,
				Car: "Lada Vesta", Parts: "oil filter",
				PhotoOrVIN: Unspecified(),
				Contact: "@driver", City: "Yalta",
				Status: StatusNew, CreatedAt: created.Add(2 * time.Hour),
			},
		},
		777: {
			{
				RequestID: "deadbeef", CustomerID: 777,
				Car: "VW Polo", Parts: "mirror",
				PhotoOrVIN: TextAttachment("XW8ZZZ61ZEG000000"),
				Contact: "+7", City: "Sevastopol",
				Status: StatusNew, CreatedAt: created,
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleSnapshot()
	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got = %+v\nwant = %+v", got, want)
	}
}

func TestEncodeShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc := buf.String()
	for _, want := range []string{`"123456": [`, `"requestId": "a1b2c3d4"`, `"photoKind": "media"`, `"status": "InProgress"`, `"claimedBy": 42`} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s:\n%s", want, doc)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, in := range []string{"", "{}"} {
		got, err := Decode(strings.NewReader(in))
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if len(got) != 0 {
			t.Errorf("Decode(%q) = %v, want empty", in, got)
		}
	}
}

func TestDecodeLegacyDocument(t *testing.T) {
	legacy := `{
  "555": [
    {"state":"awaiting_city","car":"Kia Rio","parts":"bumper","photoOrVin":"AgACAgIAAx","photoCaption":"",
     "contact":"+7","city":"Kerch","requestId":"11223344","status":"Новая","date":"2024-03-01T09:00:00.000Z"},
    {"state":"awaiting_city","car":"Kia Rio","parts":"lamp","photoOrVin":"Не указано",
     "contact":"+7","city":"Kerch","requestId":"55667788","status":"В работе","date":"2024-03-02T09:00:00.000Z"},
    {"car":"Kia Rio","parts":"hood","photoOrVin":"Z94CB41AAGR000000",
     "contact":"+7","city":"Kerch","requestId":"99aabbcc","status":"Новая","date":"2024-03-03T09:00:00.000Z"}
  ]
}`
	got, err := Decode(strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	list := got[555]
	if len(list) != 3 {
		t.Fatalf("orders = %d, want 3", len(list))
	}
	if k := list[0].PhotoOrVIN.Kind; k != AttachmentMedia {
		t.Errorf("photo with caption key: kind = %q, want media", k)
	}
	if list[0].Status != StatusNew || list[1].Status != StatusInProgress {
		t.Errorf("statuses = %q, %q", list[0].Status, list[1].Status)
	}
	if a := list[1].PhotoOrVIN; a.Kind != AttachmentUnspecified || a.Value != NotSpecified {
		t.Errorf("skipped attachment = %+v", a)
	}
	if a := list[2].PhotoOrVIN; a.Kind != AttachmentText || a.Value != "Z94CB41AAGR000000" {
		t.Errorf("vin attachment = %+v", a)
	}
	if list[2].CustomerID != 555 {
		t.Errorf("CustomerID = %d", list[2].CustomerID)
	}
}

func TestDecodeRejectsBadKey(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"abc": []}`)); err == nil {
		t.Fatal("expected error for non-numeric customer key")
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("Closed"); ok {
		t.Error("unknown status should not parse")
	}
	if s, _ := ParseStatus(" InProgress "); s != StatusInProgress {
		t.Errorf("ParseStatus = %q", s)
	}
	if StatusInProgress.Label() != "In progress" {
		t.Errorf("Label = %q", StatusInProgress.Label())
	}
}

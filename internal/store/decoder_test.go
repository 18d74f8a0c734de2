package store

import (
	"errors"
	"testing"
)

func TestDecoder_Fields(t *testing.T) {
	body := []byte(`{"name":"Ethereum","price":4500.5,"version":1234567890123,"transactions":[{"coin":"ETH","amount":-1.5}]}`)
	d := NewDecoder(Coins, "ETHAUD", body)

	if got := d.NonEmptyString("name"); got != "Ethereum" {
		t.Errorf("name = %q", got)
	}
	if got := d.Float("price"); got != 4500.5 {
		t.Errorf("price = %v", got)
	}
	if got := d.OptionalInt("version"); got != 1234567890123 {
		t.Errorf("version = %d", got)
	}
	if got := d.OptionalString("missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
	items := d.List("transactions")
	if len(items) != 1 || items[0].Float("amount") != -1.5 {
		t.Errorf("unexpected transactions decode")
	}
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		read  func(d *Decoder)
		field string
	}{
		{"invalid json", `{"a":`, func(d *Decoder) {}, ""},
		{"not an object", `[1,2]`, func(d *Decoder) {}, ""},
		{"missing string", `{}`, func(d *Decoder) { d.String("name") }, "name"},
		{"wrong type", `{"name":5}`, func(d *Decoder) { d.String("name") }, "name"},
		{"empty string", `{"name":""}`, func(d *Decoder) { d.NonEmptyString("name") }, "name"},
		{"number as string", `{"price":"12"}`, func(d *Decoder) { d.Float("price") }, "price"},
		{"list of scalars", `{"transactions":[1]}`, func(d *Decoder) { d.List("transactions") }, "transactions[0]"},
		{"nested field", `{"transactions":[{"coin":"BTC"}]}`, func(d *Decoder) {
			for _, tx := range d.List("transactions") {
				tx.Float("amount")
			}
		}, "transactions[0].amount"},
		{"bad timestamp", `{"at":"yesterday"}`, func(d *Decoder) { d.OptionalTime("at") }, "at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(Users, "u1", []byte(tt.body))
			tt.read(d)
			var de *DecodeError
			if !errors.As(d.Err(), &de) {
				t.Fatalf("expected DecodeError, got %v", d.Err())
			}
			if de.Field != tt.field {
				t.Errorf("field = %q, want %q", de.Field, tt.field)
			}
			if de.Key != "u1" || de.Table != Users {
				t.Errorf("unexpected location %s/%s", de.Table, de.Key)
			}
		})
	}
}

func TestDecoder_FirstErrorSticks(t *testing.T) {
	d := NewDecoder(Users, "u1", []byte(`{"a":1}`))
	d.String("a")
	d.String("b")
	var de *DecodeError
	if !errors.As(d.Err(), &de) || de.Field != "a" {
		t.Fatalf("expected first failure on field a, got %v", d.Err())
	}
}

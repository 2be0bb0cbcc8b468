package binder

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestLinesNestsObjects(t *testing.T) {
	v := service{
		Listener: listener{
			Port:    9443,
			Timeout: 2 * time.Second,
			Weight:  0.5,
			Comment: "c",
			Note:    Some("n"),
		},
		Name: "api",
	}

	got, err := Lines(v)
	if err != nil {
		t.Fatalf("Lines returned error: %v", err)
	}

	want := []string{
		"listener_:",
		"  port = 9443",
		"  backlog = null",
		"  timeout = 2s",
		"  tls = false",
		"  weight = 0.5",
		"  comment = c",
		"  note = n",
		"  grace = null",
		"",
		"name = api",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected lines:\n got %q\nwant %q", got, want)
	}

	fromPtr, err := Lines(&v)
	if err != nil || !slices.Equal(fromPtr, want) {
		t.Fatalf("expected pointer to render the same, got %q, %v", fromPtr, err)
	}
}

func TestRenderIndentsNonEmptyLines(t *testing.T) {
	v := service{Listener: listener{Port: 1}, Name: "api"}

	got, err := Render(v, "> ")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	want := "> listener_:\n" +
		">   port = 1\n" +
		">   backlog = null\n" +
		">   timeout = 0s\n" +
		">   tls = false\n" +
		">   weight = 0\n" +
		">   comment = \n" +
		">   note = null\n" +
		">   grace = null\n" +
		"\n" +
		"> name = api\n"
	if got != want {
		t.Fatalf("unexpected render:\n got %q\nwant %q", got, want)
	}
}

func TestLinesRejectsNonStructs(t *testing.T) {
	if _, err := Lines(42); !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	var nilPtr *service
	if _, err := Lines(nilPtr); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	none := None[int]()
	if none.IsSet() || none.OrElse(7) != 7 || none.String() != "null" {
		t.Fatalf("unexpected empty optional behaviour: %+v", none)
	}

	some := Some(3)
	if v, ok := some.Get(); !ok || v != 3 || some.OrElse(7) != 3 || some.String() != "3" {
		t.Fatalf("unexpected set optional behaviour: %+v", some)
	}
	if !some.Equal(Some(3)) || some.Equal(none) || !none.Equal(Optional[int]{}) {
		t.Fatalf("unexpected equality")
	}
}

func TestOptionalJSON(t *testing.T) {
	type payload struct {
		Name   Optional[string] `json:"name"`
		Serial Optional[int]    `json:"serial"`
	}

	data, err := json.Marshal(payload{Name: Some("svc")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"name":"svc","serial":null}` {
		t.Fatalf("unexpected JSON %s", data)
	}

	var decoded payload
	if err := json.Unmarshal([]byte(`{"name":null,"serial":3}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Name.IsSet() || !decoded.Serial.Equal(Some(3)) {
		t.Fatalf("unexpected decoded payload: %+v", decoded)
	}
}

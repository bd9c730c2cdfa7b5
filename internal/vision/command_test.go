package vision

import "testing"

func TestParseCommandActions(t *testing.T) {
	cases := map[string]commandAction{
		`{"action":"start_stream"}`:  actionStartStream,
		`{"action":"stop_stream"}`:   actionStopStream,
		`{"action":"request_token"}`: actionRequestToken,
		`{"action":"snapshot"}`:      actionSnapshot,
	}
	for payload, want := range cases {
		got, err := parseCommand([]byte(payload))
		if err != nil {
			t.Fatalf("parseCommand(%q): %v", payload, err)
		}
		if got != want {
			t.Fatalf("parseCommand(%q) = %v, want %v", payload, got, want)
		}
	}
}

func TestParseCommandRejectsUnknownAction(t *testing.T) {
	_, err := parseCommand([]byte(`{"action":"reboot"}`))
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestParseCommandRejectsMissingAction(t *testing.T) {
	_, err := parseCommand([]byte(`{}`))
	if err == nil {
		t.Fatal("expected error for missing action field")
	}
}

func TestParseCommandRejectsMalformedJSON(t *testing.T) {
	_, err := parseCommand([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

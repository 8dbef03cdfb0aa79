package errors_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apierr "github.com/geoflow/geoflow/pkg/api/types/errors"
	"github.com/geoflow/geoflow/pkg/cmp"
)

func TestErrorMessage_UnmarshalJSON(t *testing.T) {
	type when struct {
		body string
	}
	type then struct {
		message apierr.ErrorMessage
		wantErr bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			actual := apierr.ErrorMessage{}
			err := json.Unmarshal([]byte(when.body), &actual)
			if then.wantErr {
				if err == nil {
					t.Errorf("expected error, but nil")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if actual.Reason != then.message.Reason || actual.Advice != then.message.Advice || actual.See != then.message.See {
				t.Errorf("unmatch: actual = %+v, expected = %+v", actual, then.message)
			}
			if !cmp.SliceEqWith(actual.Items, then.message.Items, func(a, b apierr.Item) bool {
				return a.Path == b.Path && a.Message == b.Message
			}) {
				t.Errorf("items: actual = %+v, expected = %+v", actual.Items, then.message.Items)
			}
		}
	}

	t.Run("reason only", theory(
		when{body: `{"reason": "not found"}`},
		then{message: apierr.ErrorMessage{Reason: "not found"}},
	))

	t.Run("with items", theory(
		when{body: `{
			"reason": "bad request", "advice": "fix the payload",
			"items": [{"path": "filter.region", "message": "should be a WKT polygon"}]
		}`},
		then{message: apierr.ErrorMessage{
			Reason: "bad request", Advice: "fix the payload",
			Items: []apierr.Item{{Path: "filter.region", Message: "should be a WKT polygon"}},
		}},
	))

	t.Run("missing reason", theory(
		when{body: `{"advice": "nothing to say"}`},
		then{wantErr: true},
	))
}

func TestErrorMessage_Error(t *testing.T) {
	cause := errors.New("fake cause")
	msg := apierr.ErrorMessage{
		Reason: "bad request",
		Items:  []apierr.Item{{Path: "name", Message: "is duplicated"}},
		Cause:  cause,
	}

	if !errors.Is(msg, cause) {
		t.Errorf("it does not unwrap to the cause")
	}
	if s := msg.Error(); !strings.Contains(s, "name: is duplicated") || !strings.Contains(s, "fake cause") {
		t.Errorf("unexpected message: %s", s)
	}
}

package scoring

import (
	"errors"
	"reflect"
	"testing"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

const journeyText = "The customer opens the mobile app, selects the saved card, confirms the amount and receives a receipt. " +
	"On a payment error or timeout the app shows a retry screen and keeps the cart."

func TestScoreEmptyBackground(t *testing.T) {
	res, err := Score(fields.Background, "")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Accepted {
		t.Fatal("empty background must not be accepted")
	}
	if res.Value != 0.3 {
		t.Fatalf("expected 0.3, got %v", res.Value)
	}
	want := []string{fields.ReasonTooShort, fields.ReasonVague}
	if !reflect.DeepEqual(res.Reasons, want) {
		t.Fatalf("reasons got %v, want %v", res.Reasons, want)
	}
	if len(res.FollowUps) != 2 || res.FollowUps[0].ID != "Q_BACKGROUND_TOO_SHORT" {
		t.Fatalf("unexpected follow-ups: %+v", res.FollowUps)
	}
}

func TestScoreConcreteBackgroundAccepted(t *testing.T) {
	res, err := Score(fields.Background, "Customers report slow checkout causing cart abandonment across mobile app")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.Accepted || res.Value != 1 {
		t.Fatalf("expected full acceptance, got %+v", res)
	}
	if len(res.Reasons) != 0 || len(res.FollowUps) != 0 {
		t.Fatalf("expected no reasons, got %+v", res)
	}
}

func TestScoreFieldRules(t *testing.T) {
	cases := []struct {
		name     string
		field    string
		text     string
		value    float64
		accepted bool
		reasons  []string
	}{
		{"measurable result", fields.ExpectedResults, "Reduce cart abandonment by 15% within 3 months", 1, true, nil},
		{"unmeasurable result", fields.ExpectedResults, "Customers finish checkout without trouble", 0.7, false, []string{fields.ReasonMissingKeywords}},
		{"specific segment", fields.TargetCustomerGroup, "Returning mobile customers aged 25-40", 1, true, nil},
		{"generic segment", fields.TargetCustomerGroup, "All customers", 0.7, false, []string{fields.ReasonVague}},
		{"generic words inside other words", fields.TargetCustomerGroup, "Small customers in the SME segment", 1, true, nil},
		{"boilerplate phrase inside other words", fields.Background, "The fix was needed because customers abandon carts on the mobile app", 1, true, nil},
		{"boilerplate phrase as words", fields.Background, "Checkout retries run as needed when customers abandon carts on the mobile app", 0.85, true, []string{fields.ReasonVague}},
		{"keyword only as prefix", fields.ImpactedChannels, "we apply approvals to stored records", 0.7, false, []string{fields.ReasonMissingKeywords}},
		{"plural keyword", fields.ImpactedChannels, "Both mobile apps", 1, true, nil},
		{"channels listed", fields.ImpactedChannels, "Mobile app and web checkout", 1, true, nil},
		{"no channel named", fields.ImpactedChannels, "Only the checkout pages", 0.7, false, []string{fields.ReasonMissingKeywords}},
		{"existing journey", fields.ImpactedJourney, "Existing checkout journey", 1, true, nil},
		{"journey with edge cases", fields.JourneysDescription, journeyText, 1, true, nil},
		{"journey too short", fields.JourneysDescription, "Customer pays and gets an error message", 0.6, false, []string{fields.ReasonTooShort}},
		{"no reports", fields.ReportsNeeded, "none", 1, true, nil},
		{"dashboard", fields.ReportsNeeded, "Daily conversion dashboard", 1, true, nil},
		{"traffic with number", fields.TrafficForecast, "About 20000 transactions per day", 1, true, nil},
		{"traffic without number", fields.TrafficForecast, "Very high", 0.7, false, []string{fields.ReasonMissingKeywords}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Score(tc.field, tc.text)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if res.Value != tc.value || res.Accepted != tc.accepted {
				t.Fatalf("got value=%v accepted=%v, want value=%v accepted=%v", res.Value, res.Accepted, tc.value, tc.accepted)
			}
			if !reflect.DeepEqual(res.Reasons, tc.reasons) {
				t.Fatalf("reasons got %v, want %v", res.Reasons, tc.reasons)
			}
		})
	}
}

func TestScoreBoilerplatePenalty(t *testing.T) {
	one, err := Score(fields.Background, "We need to improve the checkout because customers abandon carts on the mobile app")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !one.Accepted || one.Value != 0.85 {
		t.Fatalf("single boilerplate hit should still pass, got %+v", one)
	}
	if !reflect.DeepEqual(one.Reasons, []string{fields.ReasonVague}) {
		t.Fatalf("expected vague reason, got %v", one.Reasons)
	}

	two, err := Score(fields.Background, "We need to improve the checkout and make it easy because customers abandon carts")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if two.Accepted || two.Value != 0.7 {
		t.Fatalf("two boilerplate hits should fail, got %+v", two)
	}
}

func TestScoreTurkishBoilerplate(t *testing.T) {
	res, err := Score(fields.Background, "Ödeme ekranı hızlı olmalı ve kullanıcıya uygun şekilde tasarlanmalı, mümkün olan en kısa sürede")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Accepted {
		t.Fatalf("expected Turkish boilerplate to fail, got %+v", res)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	a, _ := Score(fields.JourneysDescription, journeyText)
	b, _ := Score(fields.JourneysDescription, journeyText)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("scores differ: %+v vs %+v", a, b)
	}
}

func TestScorePrivacyGateRejected(t *testing.T) {
	_, err := Score(fields.PrivacyCompliance, "yes")
	if !errors.Is(err, ErrPrivacyGate) {
		t.Fatalf("expected ErrPrivacyGate, got %v", err)
	}
}

func TestScoreUnknownField(t *testing.T) {
	_, err := Score("budget", "anything")
	if !errors.Is(err, fields.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestTotal(t *testing.T) {
	all := map[string]float64{}
	for _, d := range fields.ScoredFields() {
		all[d.ID] = 1
	}
	all[fields.PrivacyCompliance] = 1
	if got := Total(all); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := Total(map[string]float64{fields.Background: 0.3}); got != 4.5 {
		t.Fatalf("expected 4.5, got %v", got)
	}
}

package analyzer

import (
	"math"
	"testing"

	"callmonitor/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeCancelAccount(t *testing.T) {
	a := Analyze("I want to cancel my account", models.SpeakerCustomer)

	assert.Equal(t, models.IntentEscalation, a.Intent)
	assert.Contains(t, a.Flags, models.FlagChurnRisk)
	assert.Equal(t, -0.9, a.Sentiment)
}

func TestSentimentCombinesMinNegativeAndMaxPositive(t *testing.T) {
	a := Analyze("This is terrible, but thank you", models.SpeakerCustomer)
	assert.Equal(t, 0.0, a.Sentiment)

	// furious (-0.9) and upset (-0.6) against wonderful (0.8)
	a = Analyze("I was furious and upset but the rep was wonderful", models.SpeakerCustomer)
	assert.InDelta(t, -0.05, a.Sentiment, 1e-9)
}

func TestSentimentMeans(t *testing.T) {
	a := Analyze("I'm frustrated and upset", models.SpeakerCustomer)
	assert.Equal(t, -0.6, a.Sentiment)

	a = Analyze("Excellent, that sounds good", models.SpeakerCustomer)
	assert.Equal(t, 0.6, a.Sentiment)
}

func TestNeutralBaselines(t *testing.T) {
	assert.Equal(t, 0.0, Analyze("The sky is blue today", models.SpeakerCustomer).Sentiment)
	assert.Equal(t, 0.15, Analyze("The sky is blue today", models.SpeakerAgent).Sentiment)
	assert.Equal(t, 0.0, Analyze("", models.SpeakerCustomer).Sentiment)
}

func TestAgentReassuranceOnlyForAgents(t *testing.T) {
	text := "Let me take care of that right away"
	assert.Equal(t, 0.0, Analyze(text, models.SpeakerCustomer).Sentiment)
	assert.InDelta(t, 0.27, Analyze(text, models.SpeakerAgent).Sentiment, 1e-9)
}

func TestSentimentAlwaysInRange(t *testing.T) {
	inputs := []string{
		"",
		"I'm going to sue, this is fraud, I'm furious and fed up, worst service, cancel my account",
		"Thank you so much, wonderful, excellent, perfect, really helpful, great service",
		"damn it this is not working and it's broken",
		"$1,200.00 on 03/15/2024 for the premium plan",
	}
	for _, in := range inputs {
		for _, sp := range []models.Speaker{models.SpeakerAgent, models.SpeakerCustomer} {
			s := Analyze(in, sp).Sentiment
			assert.True(t, s >= -1 && s <= 1, "%q -> %v", in, s)
			assert.False(t, math.Signbit(s) && s == 0, "negative zero for %q", in)
		}
	}
}

func TestIntentCascade(t *testing.T) {
	cases := []struct {
		text    string
		speaker models.Speaker
		want    models.Intent
	}{
		{"Let me speak to your supervisor", models.SpeakerCustomer, models.IntentEscalation},
		{"This is ridiculous", models.SpeakerCustomer, models.IntentComplaint},
		{"I'd like my money back", models.SpeakerCustomer, models.IntentRequest},
		{"How do I reset it?", models.SpeakerCustomer, models.IntentInquiry},
		{"How do I reset it?", models.SpeakerAgent, models.IntentInquiry},
		{"Could you check the order", models.SpeakerCustomer, models.IntentRequest},
		{"Good morning, welcome to support", models.SpeakerAgent, models.IntentGreeting},
		{"Goodbye now", models.SpeakerCustomer, models.IntentClosing},
		{"I'm sorry to hear that", models.SpeakerAgent, models.IntentEmpathy},
		{"I'm sorry to hear that", models.SpeakerCustomer, models.IntentInquiry},
		{"Your password was reset and it is fixed", models.SpeakerAgent, models.IntentResolution},
		{"Okay", models.SpeakerCustomer, models.IntentInquiry},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Analyze(tc.text, tc.speaker).Intent, tc.text)
	}
}

func TestFlags(t *testing.T) {
	a := Analyze("I'll call my lawyer and speak to someone in charge, then switch", models.SpeakerCustomer)
	assert.Equal(t, []models.Flag{models.FlagChurnRisk, models.FlagEscalationNeeded, models.FlagComplianceRisk}, a.Flags)

	a = Analyze("Shhhit, this idiot system", models.SpeakerCustomer)
	assert.Contains(t, a.Flags, models.FlagProfanity)

	a = Analyze("All good here", models.SpeakerCustomer)
	assert.NotNil(t, a.Flags)
	assert.Empty(t, a.Flags)
}

func TestEntities(t *testing.T) {
	a := Analyze("I was charged $49.99 and $1,200 on 3/15/2024 for the Premium plan and a pro account", models.SpeakerCustomer)

	assert.Equal(t, []models.Entity{
		{Type: "amount", Value: "$49.99"},
		{Type: "amount", Value: "$1,200"},
		{Type: "date", Value: "3/15/2024"},
		{Type: "product", Value: "premium plan"},
		{Type: "product", Value: "pro account"},
	}, a.Entities)
}

func TestProductWithoutSuffix(t *testing.T) {
	a := Analyze("We only have the standard option", models.SpeakerAgent)
	assert.Equal(t, []models.Entity{{Type: "product", Value: "standard"}}, a.Entities)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.14, Round2(0.144))
	assert.Equal(t, -0.35, Round2(-0.349))
	assert.False(t, math.Signbit(Round2(-0.001)))
}

// Package analyzer scores transcript lines with a fixed set of weighted
// patterns. Results are deterministic for a given text and speaker.
package analyzer

import (
	"math"
	"regexp"
	"strings"

	"callmonitor/pkg/models"
)

type weighted struct {
	re     *regexp.Regexp
	weight float64
}

func table(entries ...interface{}) []weighted {
	out := make([]weighted, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		out = append(out, weighted{
			re:     regexp.MustCompile(entries[i].(string)),
			weight: entries[i+1].(float64),
		})
	}
	return out
}

var negativePatterns = table(
	`cancel\s+(my\s+)?account`, -0.9,
	`speak\s+to\s+(a\s+)?manager`, -0.6,
	`speak\s+to\s+(a\s+)?supervisor`, -0.6,
	`ridiculous`, -0.7,
	`unacceptable`, -0.7,
	`been\s+waiting`, -0.5,
	`terrible`, -0.8,
	`worst`, -0.85,
	`going\s+to\s+sue`, -0.95,
	`bbb|better\s+business`, -0.8,
	`never\s+again`, -0.7,
	`fed\s+up`, -0.8,
	`furious`, -0.9,
	`waste\s+of\s+(my\s+)?time`, -0.7,
	`competitor`, -0.6,
	`switch\s+provider`, -0.7,
	`file\s+a\s+complaint`, -0.7,
	`third\s+time`, -0.75,
	`nobody\s+cares`, -0.8,
	`overcharged`, -0.6,
	`unauthorized`, -0.8,
	`fraud`, -0.9,
	`frustrated`, -0.6,
	`angry`, -0.7,
	`disappointed`, -0.5,
	`horrible`, -0.8,
	`incompetent`, -0.8,
	`useless`, -0.7,
	`doesn'?t\s+work`, -0.5,
	`not\s+working`, -0.5,
	`charged\s+twice`, -0.7,
	`wrong\s+charge`, -0.6,
	`broken`, -0.4,
	`problem`, -0.3,
	`issue`, -0.2,
	`upset`, -0.6,
	`annoyed`, -0.5,
	`sick\s+of`, -0.7,
	`tired\s+of`, -0.5,
)

var positivePatterns = table(
	`thank\s+you(\s+so\s+much)?`, 0.8,
	`really\s+helpful`, 0.7,
	`appreciate`, 0.7,
	`great\s+(service|help)`, 0.8,
	`problem\s+solved`, 0.8,
	`that\s+works`, 0.5,
	`sounds\s+good`, 0.4,
	`makes\s+sense`, 0.3,
	`wonderful`, 0.8,
	`excellent`, 0.8,
	`perfect`, 0.7,
	`happy(\s+with)?`, 0.6,
	`satisfied`, 0.6,
	`resolved`, 0.7,
	`fixed`, 0.6,
	`good\s+news`, 0.5,
	`glad`, 0.5,
)

// reassurance phrases only count when the agent says them
var agentPatterns = table(
	`apologize|sorry`, 0.2,
	`understand`, 0.2,
	`help\s+you`, 0.3,
	`let\s+me`, 0.2,
	`right\s+away`, 0.3,
	`take\s+care`, 0.3,
	`credit|refund`, 0.4,
	`resolve`, 0.3,
)

type intentRule struct {
	re      *regexp.Regexp
	speaker models.Speaker
	intent  models.Intent
}

var intentRules = []intentRule{
	{regexp.MustCompile(`cancel|terminate|close\s+account|end\s+my`), "", models.IntentEscalation},
	{regexp.MustCompile(`manager|supervisor|escalate|someone\s+else`), "", models.IntentEscalation},
	{regexp.MustCompile(`complaint|terrible|worst|horrible|angry|frustrated|ridiculous`), "", models.IntentComplaint},
	{regexp.MustCompile(`refund|money\s+back|credit|reimburse`), "", models.IntentRequest},
	{regexp.MustCompile(`help|how|what|when|where|why`), models.SpeakerCustomer, models.IntentInquiry},
	{regexp.MustCompile(`please|need|want|require|request|could\s+you|can\s+you`), "", models.IntentRequest},
	{regexp.MustCompile(`hello|hi\b|good\s+(morning|afternoon|evening)|welcome|thank.*call`), "", models.IntentGreeting},
	{regexp.MustCompile(`thank|bye|goodbye|have\s+a\s+(good|great)`), "", models.IntentClosing},
	{regexp.MustCompile(`sorry|apologize|understand|hear\s+that`), models.SpeakerAgent, models.IntentEmpathy},
	{regexp.MustCompile(`resolved|fixed|taken\s+care|applied|processed|credit`), "", models.IntentResolution},
}

var flagRules = []struct {
	re   *regexp.Regexp
	flag models.Flag
}{
	{regexp.MustCompile(`cancel|leave|competitor|switch|go\s+somewhere`), models.FlagChurnRisk},
	{regexp.MustCompile(`manager|supervisor|escalate|speak\s+to\s+someone`), models.FlagEscalationNeeded},
	{regexp.MustCompile(`sue|lawyer|legal|attorney|bbb|report|regulat`), models.FlagComplianceRisk},
	{regexp.MustCompile(`(f+u+c+k|s+h+i+t|damn\s+it|bastard|idiot)`), models.FlagProfanity},
}

var (
	amountPattern  = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	datePattern    = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	productPattern = regexp.MustCompile(`\b(premium|standard|basic|pro|enterprise|business|starter)\s*(plan|package|tier|account)?\b`)
)

const (
	agentBaseline    = 0.15
	customerBaseline = 0.0
)

// Analyze scores a single line of dialogue
func Analyze(text string, speaker models.Speaker) models.Analysis {
	lower := strings.ToLower(text)

	return models.Analysis{
		Sentiment: Sentiment(lower, speaker),
		Intent:    classifyIntent(lower, speaker),
		Entities:  extractEntities(text, lower),
		Flags:     detectFlags(lower),
	}
}

// Sentiment combines pattern hits in lower-cased text into a score in [-1, 1]
func Sentiment(lower string, speaker models.Speaker) float64 {
	neg := hits(negativePatterns, lower)
	pos := hits(positivePatterns, lower)
	if speaker == models.SpeakerAgent {
		pos = append(pos, hits(agentPatterns, lower)...)
	}

	var score float64
	switch {
	case len(neg) > 0 && len(pos) > 0:
		score = (minOf(neg) + maxOf(pos)) / 2
	case len(neg) > 0:
		score = mean(neg)
	case len(pos) > 0:
		score = mean(pos)
	case speaker == models.SpeakerAgent:
		score = agentBaseline
	default:
		score = customerBaseline
	}

	return clamp(Round2(score), -1, 1)
}

func classifyIntent(lower string, speaker models.Speaker) models.Intent {
	for _, rule := range intentRules {
		if rule.speaker != "" && rule.speaker != speaker {
			continue
		}
		if rule.re.MatchString(lower) {
			return rule.intent
		}
	}
	return models.IntentInquiry
}

func detectFlags(lower string) []models.Flag {
	flags := []models.Flag{}
	for _, rule := range flagRules {
		if rule.re.MatchString(lower) {
			flags = append(flags, rule.flag)
		}
	}
	return flags
}

func extractEntities(text, lower string) []models.Entity {
	entities := []models.Entity{}
	for _, v := range amountPattern.FindAllString(text, -1) {
		entities = append(entities, models.Entity{Type: "amount", Value: v})
	}
	for _, v := range datePattern.FindAllString(text, -1) {
		entities = append(entities, models.Entity{Type: "date", Value: v})
	}
	for _, m := range productPattern.FindAllStringSubmatch(lower, -1) {
		value := strings.TrimSpace(m[1] + " " + m[2])
		entities = append(entities, models.Entity{Type: "product", Value: value})
	}
	return entities
}

func hits(patterns []weighted, lower string) []float64 {
	var out []float64
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			out = append(out, p.weight)
		}
	}
	return out
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

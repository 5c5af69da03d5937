package simulation

import "callmonitor/pkg/models"

// Line is one templated line of a script. Text may contain the {agent} and
// {customer} placeholders.
type Line struct {
	Speaker models.Speaker
	Text    string
}

// Script is a fixed dialogue a simulated call plays through
type Script struct {
	Type         string
	CustomerMood string
	Complexity   string
	Messages     []Line
}

// AgentProfile is the static part of a seeded agent
type AgentProfile struct {
	AgentID   string
	Name      string
	Skills    []string
	AvatarIdx int
}

const (
	byAgent    = models.SpeakerAgent
	byCustomer = models.SpeakerCustomer
)

// Trigger kinds accepted by Engine.TriggerEvent
const (
	TriggerAngryCustomer     = "angry_customer"
	TriggerEscalationRequest = "escalation_request"
	TriggerComplianceIssue   = "compliance_issue"
)

var agentProfiles = []AgentProfile{
	{"AGT-001", "Sarah Mitchell", []string{"billing", "retention", "technical"}, 0},
	{"AGT-002", "Michael Torres", []string{"technical", "billing"}, 1},
	{"AGT-003", "Lisa Kim", []string{"retention", "sales", "billing"}, 2},
	{"AGT-004", "James Parker", []string{"technical", "escalation"}, 3},
	{"AGT-005", "Anna Chen", []string{"billing", "sales"}, 4},
	{"AGT-006", "David Robinson", []string{"technical", "retention"}, 0},
	{"AGT-007", "Emily Patel", []string{"sales", "billing", "retention"}, 1},
	{"AGT-008", "Chris Williams", []string{"escalation", "technical", "billing"}, 2},
	{"AGT-009", "Priya Raman", []string{"technical", "security"}, 3},
	{"AGT-010", "Marcus Bell", []string{"billing", "escalation"}, 4},
	{"AGT-011", "Olivia Grant", []string{"retention", "sales"}, 0},
	{"AGT-012", "Hector Alvarez", []string{"technical", "shipping"}, 1},
	{"AGT-013", "Grace Okafor", []string{"billing", "retention", "security"}, 2},
	{"AGT-014", "Ethan Brooks", []string{"sales", "technical"}, 3},
	{"AGT-015", "Nina Kowalski", []string{"escalation", "retention"}, 4},
	{"AGT-016", "Samuel Reyes", []string{"shipping", "billing"}, 0},
	{"AGT-017", "Hannah Schultz", []string{"technical", "billing", "sales"}, 1},
	{"AGT-018", "Victor Nguyen", []string{"security", "escalation"}, 2},
	{"AGT-019", "Chloe Dubois", []string{"retention", "billing"}, 3},
	{"AGT-020", "Isaac Turner", []string{"technical", "shipping", "sales"}, 4},
}

var customerNames = []string{
	"John Davis", "Maria Garcia", "Robert Wilson", "Jennifer Lee",
	"Thomas Brown", "Amanda Martinez", "Kevin Johnson", "Stephanie Smith",
	"Daniel Anderson", "Rachel Thompson", "William Clark", "Nicole Harris",
	"Jason Wright", "Lauren Mitchell", "Andrew Scott", "Megan Young",
	"Christopher King", "Ashley Green", "Brandon Hall", "Samantha Allen",
}

var (
	accountTypes = []string{"premium", "standard", "new"}
	lastIssues   = []string{"billing", "technical", "none", "shipping"}
	resolutions  = []string{models.ResolutionSolved, models.ResolutionEscalated, models.ResolutionCallbackScheduled}
)

// moods favoured by the non-uniform sentiment distributions
var (
	positiveMoods = map[string]bool{"pleasant": true, "confused": true, "worried": true, "anxious": true}
	negativeMoods = map[string]bool{"frustrated": true, "angry": true, "disappointed": true, "panicked": true}
)

const favouredWeight = 3

// AgentCatalogSize is the number of seeded agents and the ceiling on num_calls
func AgentCatalogSize() int {
	return len(agentProfiles)
}

// Scenarios returns the regular script catalog
func Scenarios() []Script {
	out := make([]Script, len(scenarios))
	copy(out, scenarios)
	return out
}

// TriggerScript returns the named trigger script
func TriggerScript(kind string) (Script, bool) {
	s, ok := triggers[kind]
	return s, ok
}

// TriggerKinds lists the accepted trigger kinds
func TriggerKinds() []string {
	return []string{TriggerAngryCustomer, TriggerEscalationRequest, TriggerComplianceIssue}
}

// scenarioWeight weights a script for the given sentiment distribution
func scenarioWeight(s Script, distribution string) int {
	switch distribution {
	case DistributionPositive:
		if positiveMoods[s.CustomerMood] {
			return favouredWeight
		}
	case DistributionNegative:
		if negativeMoods[s.CustomerMood] {
			return favouredWeight
		}
	}
	return 1
}

var scenarios = []Script{
	{
		Type:         "billing_dispute",
		CustomerMood: "frustrated",
		Complexity:   "medium",
		Messages: []Line{
			{byAgent, "Thank you for calling TechCorp Support. This is {agent}, how can I help you today?"},
			{byCustomer, "Hi, I need to talk about my bill. I was charged $149.99 but my plan is supposed to be $99.99."},
			{byAgent, "I understand your concern, {customer}. Let me pull up your account right away."},
			{byCustomer, "This is the second time this has happened. I called last month about the same exact issue."},
			{byAgent, "I apologize for the recurring issue. I can see there was an upgrade fee applied to your account."},
			{byCustomer, "I never authorized any upgrade! This is ridiculous. I've been a loyal customer for 3 years."},
			{byAgent, "I completely understand your frustration, and I want to make this right. Let me reverse that charge immediately."},
			{byCustomer, "And what about last month's overcharge? That was never properly refunded either."},
			{byAgent, "Let me check. I see the credit was initiated but didn't process correctly. I'll reissue both credits now."},
			{byCustomer, "If this happens again, I'm switching to your competitor. I mean it."},
			{byAgent, "I'm processing a $100 credit for this month and $50 for last month. You'll see it within 3-5 business days."},
			{byCustomer, "Fine. I appreciate you handling this, but I shouldn't have to call every month."},
			{byAgent, "You're absolutely right. I've flagged your account to prevent future automatic upgrades. Anything else?"},
			{byCustomer, "No, that should be it. Thank you."},
			{byAgent, "Thank you for your patience, {customer}. Have a great day."},
		},
	},
	{
		Type:         "technical_issue",
		CustomerMood: "confused",
		Complexity:   "high",
		Messages: []Line{
			{byAgent, "TechCorp Support, this is {agent}. What can I help you with?"},
			{byCustomer, "Hey, my internet has been down since this morning. Nothing is working."},
			{byAgent, "I'm sorry to hear that, {customer}. Have you tried restarting your router?"},
			{byCustomer, "Yes, I've restarted it three times already. The lights just keep blinking orange."},
			{byAgent, "I see. Let me run a diagnostic on your connection from our end."},
			{byCustomer, "I work from home and I have an important meeting in 30 minutes. I really need this fixed now."},
			{byAgent, "I understand the urgency. The diagnostic shows there might be a signal issue at your location."},
			{byCustomer, "What does that mean? Is there an outage in my area?"},
			{byAgent, "There's no area-wide outage, but I can see some signal degradation. Let me try a remote reset of your equipment."},
			{byCustomer, "Okay, please hurry. This is really stressful."},
			{byAgent, "The reset is in progress. It should take about 2 minutes. Are you seeing any changes on the router?"},
			{byCustomer, "Oh wait, the light just turned green! Let me check... yes, the internet is back!"},
			{byAgent, "Excellent! I'm glad we could resolve that quickly. Is the speed looking normal?"},
			{byCustomer, "Yes, everything seems to be working now. Thank you so much for the quick help!"},
			{byAgent, "You're welcome! If you experience any more issues, don't hesitate to call. Good luck with your meeting!"},
		},
	},
	{
		Type:         "cancellation_request",
		CustomerMood: "angry",
		Complexity:   "high",
		Messages: []Line{
			{byAgent, "Thank you for calling TechCorp. I'm {agent}, how can I assist you?"},
			{byCustomer, "I want to cancel my account. Immediately."},
			{byAgent, "I'm sorry to hear that, {customer}. May I ask what's prompting this decision?"},
			{byCustomer, "Your service has been terrible for months. Outages every week, speeds are half what I'm paying for."},
			{byAgent, "I understand your frustration with the service quality. Let me look into what's been happening with your account."},
			{byCustomer, "Don't bother trying to talk me out of it. I've already signed up with your competitor. Just cancel it."},
			{byAgent, "I respect your decision. Before I process the cancellation, I want to mention we have a new premium tier that addresses the speed issues."},
			{byCustomer, "I don't care about new tiers. You've had months to fix this and didn't. Cancel my account right now."},
			{byAgent, "I understand. I can offer you 3 months free as we've recently upgraded our infrastructure in your area."},
			{byCustomer, "Three months free? After the terrible service I've had? That's insulting. Just process the cancellation."},
			{byAgent, "I apologize if that seemed inadequate. I'll process the cancellation right away. Your final bill will be prorated."},
			{byCustomer, "I also want a refund for the last two months of service since it was barely usable."},
			{byAgent, "I'll submit a refund request for the last two months. It will be reviewed by our billing team within 48 hours."},
			{byCustomer, "Fine. Make sure it actually gets processed. I'm done dealing with this company."},
			{byAgent, "Your cancellation is processed and the refund request is submitted. You'll receive a confirmation email shortly."},
		},
	},
	{
		Type:         "product_inquiry",
		CustomerMood: "pleasant",
		Complexity:   "low",
		Messages: []Line{
			{byAgent, "Welcome to TechCorp Sales, this is {agent}. How can I help you today?"},
			{byCustomer, "Hi! I'm interested in upgrading my current plan. Can you tell me about your premium package?"},
			{byAgent, "Of course! Our premium package includes 500 Mbps speeds, unlimited data, and priority support. It's $89.99 per month."},
			{byCustomer, "That sounds good. What's the difference between premium and the enterprise plan?"},
			{byAgent, "The enterprise plan adds 1 Gbps speeds, a dedicated account manager, and 99.99% uptime SLA for $149.99 per month."},
			{byCustomer, "I think premium would be enough for me. Are there any current promotions?"},
			{byAgent, "Great timing! We're running a promotion where new premium subscribers get the first 3 months at $69.99."},
			{byCustomer, "That's a great deal! Can I keep my current phone number if I switch?"},
			{byAgent, "Absolutely, your number will be transferred automatically. The switch takes about 24 hours."},
			{byCustomer, "Perfect. Let's go ahead with the premium plan then!"},
			{byAgent, "Wonderful! I'll get that set up for you right now. You'll receive a confirmation email within the hour."},
			{byCustomer, "Excellent, thank you so much for your help!"},
			{byAgent, "My pleasure, {customer}! Welcome to TechCorp Premium. Have a wonderful day!"},
		},
	},
	{
		Type:         "service_outage",
		CustomerMood: "anxious",
		Complexity:   "medium",
		Messages: []Line{
			{byAgent, "TechCorp Support, {agent} speaking. How can I help?"},
			{byCustomer, "Is there a service outage right now? My entire office network is down and we can't do anything."},
			{byAgent, "Let me check our system status for your area, {customer}. What's your zip code?"},
			{byCustomer, "It's 90210. We have 50 employees who can't work right now. This is costing us thousands per hour."},
			{byAgent, "I can see there is a confirmed outage in your area affecting business customers. Our team is already working on it."},
			{byCustomer, "When will it be fixed? We have critical deadlines today."},
			{byAgent, "The estimated time to resolution is 2 hours. I know that's not ideal given your situation."},
			{byCustomer, "Two hours?! That's unacceptable. We're losing money every minute this is down."},
			{byAgent, "I completely understand the impact. Let me escalate this to our priority repair team and see if we can expedite."},
			{byCustomer, "Please do. And I want to be notified the moment it's back up. Can I get a direct number?"},
			{byAgent, "I'll set up automatic SMS notifications for you. I'm also issuing a service credit to your account for the downtime."},
			{byCustomer, "A credit is the least you can do. This outage is going to be very costly for us."},
			{byAgent, "I'll make sure our account manager follows up with you about additional compensation. You'll get the first SMS update within 30 minutes."},
			{byCustomer, "Alright. Please make this a priority."},
			{byAgent, "It is our top priority. I'll personally follow up with you once service is restored."},
		},
	},
	{
		Type:         "refund_request",
		CustomerMood: "disappointed",
		Complexity:   "medium",
		Messages: []Line{
			{byAgent, "Thank you for calling TechCorp, this is {agent}. How can I help you?"},
			{byCustomer, "I'd like to request a refund for my equipment purchase. The router I bought doesn't work properly."},
			{byAgent, "I'm sorry to hear that, {customer}. When did you purchase the router?"},
			{byCustomer, "About two weeks ago. It drops connection every few hours and the range is terrible."},
			{byAgent, "That's within our 30-day return window. Have you tried the troubleshooting steps in the manual?"},
			{byCustomer, "Yes, I've tried everything. Factory reset, different channels, firmware update. Nothing works."},
			{byAgent, "It sounds like you've been very thorough. I can process a full refund of $129.99 for you."},
			{byCustomer, "Great. How long will that take? And do I need to return the defective router?"},
			{byAgent, "The refund takes 5-7 business days. We'll send you a prepaid shipping label for the return."},
			{byCustomer, "Okay, that works. Can you also recommend a better router that actually works?"},
			{byAgent, "Our Pro Router has much better range and reliability. It's $179.99 but I can apply a 20% loyalty discount."},
			{byCustomer, "That sounds reasonable. Let me think about it and I'll order online if I decide to."},
			{byAgent, "Of course! Your refund is being processed and you'll receive the shipping label via email today."},
		},
	},
	{
		Type:         "account_security",
		CustomerMood: "panicked",
		Complexity:   "high",
		Messages: []Line{
			{byAgent, "TechCorp Security Team, {agent} here. How can I help you?"},
			{byCustomer, "I think someone hacked my account! I got an email about a $500 purchase I never made!"},
			{byAgent, "I understand how alarming that must be, {customer}. Let me secure your account right away."},
			{byCustomer, "Please hurry! I'm worried they'll charge more. This is my business account with sensitive data."},
			{byAgent, "I've placed a temporary hold on all transactions. Can you verify your identity with your security PIN?"},
			{byCustomer, "Yes, it's 7842. Please tell me what happened. When was the unauthorized access?"},
			{byAgent, "I can see a login from an unrecognized device at 3:47 AM this morning. The $500 charge was for equipment."},
			{byCustomer, "That wasn't me at all. I was asleep at 3 AM. Can you reverse that charge?"},
			{byAgent, "Absolutely. I'm reversing the charge now and I've changed your password. You'll need to set a new one."},
			{byCustomer, "Okay. Is my data safe? Should I be worried about identity theft?"},
			{byAgent, "I've checked and no personal data was accessed. I recommend enabling two-factor authentication for extra security."},
			{byCustomer, "Yes, please set that up for me. I don't want this happening again."},
			{byAgent, "Two-factor is now enabled. You'll get a text code with each login. The unauthorized charge has been fully reversed."},
			{byCustomer, "Thank you so much. You've been incredibly helpful. I was really worried."},
			{byAgent, "I'm glad I could help. If you notice anything suspicious, call our security line directly anytime."},
		},
	},
	{
		Type:         "shipping_issue",
		CustomerMood: "worried",
		Complexity:   "low",
		Messages: []Line{
			{byAgent, "TechCorp Support, {agent} speaking. What can I help you with?"},
			{byCustomer, "I ordered a new modem 10 days ago and it still hasn't arrived. The tracking says it's stuck in transit."},
			{byAgent, "Let me look into that for you, {customer}. What's your order number?"},
			{byCustomer, "It's ORD-2024-78542. I really need it because my current one is barely working."},
			{byAgent, "I found your order. It appears there was a shipping delay due to weather in the distribution center."},
			{byCustomer, "Weather? It's been 10 days though. When will I actually get it?"},
			{byAgent, "The latest update shows it should arrive within the next 2 business days. I apologize for the delay."},
			{byCustomer, "That's frustrating. I've been dealing with a terrible connection while waiting for this replacement."},
			{byAgent, "I completely understand. Let me expedite the shipping at no extra cost and apply a $25 credit to your account."},
			{byCustomer, "Okay, that helps a little. Will I get an updated tracking number?"},
			{byAgent, "Yes, you'll receive a new tracking email within the hour. The expedited delivery should arrive by tomorrow."},
			{byCustomer, "Alright, thank you for handling this. I hope it actually arrives this time."},
			{byAgent, "I've set a delivery alert for myself as well. I'll follow up if there are any more issues. Have a good day!"},
		},
	},
}

var triggers = map[string]Script{
	"angry_customer": {
		Type:         "angry_customer",
		CustomerMood: "furious",
		Complexity:   "critical",
		Messages: []Line{
			{byAgent, "TechCorp Support, {agent} speaking."},
			{byCustomer, "I am absolutely furious right now! I've been a customer for 5 years and this is the worst service I've ever experienced!"},
			{byAgent, "I'm very sorry to hear that, {customer}. Please tell me what happened."},
			{byCustomer, "You charged me $300 for services I never ordered, my internet has been down for 3 days, and nobody has called me back despite 4 complaints!"},
			{byAgent, "That's completely unacceptable and I sincerely apologize. Let me escalate this to our resolution team."},
			{byCustomer, "I'm done with escalations! I want to speak to a manager RIGHT NOW or I'm canceling everything and going to your competitor!"},
			{byAgent, "I understand your frustration. Let me connect you with my supervisor immediately."},
			{byCustomer, "This is the last chance. If this isn't resolved today, I'm filing a complaint with the BBB and switching providers."},
			{byAgent, "I hear you and I'm making this our highest priority. My supervisor will be on the line within 60 seconds."},
		},
	},
	"escalation_request": {
		Type:         "escalation_request",
		CustomerMood: "demanding",
		Complexity:   "high",
		Messages: []Line{
			{byAgent, "TechCorp Support, this is {agent}."},
			{byCustomer, "Hi, I need to speak with a supervisor. The agent I spoke to yesterday promised me a callback that never happened."},
			{byAgent, "I apologize for that, {customer}. Let me review what happened."},
			{byCustomer, "I don't want another review. I want a supervisor. I've been given the runaround for a week now."},
			{byAgent, "I completely understand. Let me get my supervisor on the line."},
			{byCustomer, "Thank you. And please make sure it's someone who can actually make decisions. I need this resolved today."},
		},
	},
	"compliance_issue": {
		Type:         "compliance_issue",
		CustomerMood: "threatening",
		Complexity:   "critical",
		Messages: []Line{
			{byAgent, "TechCorp Support, {agent} here."},
			{byCustomer, "I'm recording this call. I've discovered you've been charging my account without authorization for 6 months."},
			{byAgent, "I take this very seriously, {customer}. Let me investigate immediately."},
			{byCustomer, "I've already consulted with my attorney. If this isn't resolved and fully refunded, I will be filing a lawsuit."},
			{byAgent, "I understand the severity. Let me connect you with our compliance department right away."},
			{byCustomer, "I also plan to report this to the Better Business Bureau and the FTC. This is fraud, plain and simple."},
			{byAgent, "I'm transferring you to our legal compliance team now. They have the authority to handle this."},
		},
	},
}

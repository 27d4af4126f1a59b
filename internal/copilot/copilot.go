// Package copilot answers chat messages without the hosted agent. It
// classifies the message into an intent, routes it to one of four
// specialist agents (Vegetation Guardian, Fire Risk Analyst, Asset
// Inspector, Water Treeing Detective) that render markdown from warehouse
// data, and falls back to the analyst for free-form data questions.
package copilot

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vigil-grid/vigil/internal/analyst"
	"github.com/vigil-grid/vigil/internal/model"
)

// Persona ids.
const (
	PersonaSafetyGuardian   = "safety_guardian"
	PersonaFieldPartner     = "field_partner"
	PersonaExecutiveAdvisor = "executive_advisor"
	PersonaDataDetective    = "data_detective"

	DefaultPersona = PersonaSafetyGuardian
)

// Personas are the voices a session can select.
var Personas = map[string]model.Persona{
	PersonaSafetyGuardian: {
		Name: "Safety Guardian", Style: "formal",
		Prefix: "As your Safety Guardian, ", Emoji: "🛡️",
	},
	PersonaFieldPartner: {
		Name: "Field Partner", Style: "practical",
		Prefix: "Hey there! ", Emoji: "👷",
	},
	PersonaExecutiveAdvisor: {
		Name: "Executive Advisor", Style: "strategic",
		Prefix: "From a portfolio perspective, ", Emoji: "📊",
	},
	PersonaDataDetective: {
		Name: "Data Detective", Style: "analytical",
		Prefix: "I've been analyzing the data and found something interesting: ", Emoji: "🔍",
	},
}

// ValidPersona reports whether id names a known persona.
func ValidPersona(id string) bool {
	_, ok := Personas[id]
	return ok
}

// PersonaIDs returns the persona ids, sorted.
func PersonaIDs() []string {
	ids := make([]string, 0, len(Personas))
	for id := range Personas {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PersonaFor returns the persona for id, or the default persona.
func PersonaFor(id string) model.Persona {
	if p, ok := Personas[id]; ok {
		return p
	}
	return Personas[DefaultPersona]
}

// Intents.
const (
	IntentHiddenDiscovery = "hidden_discovery"
	IntentFireRisk        = "fire_risk"
	IntentVegetation      = "vegetation"
	IntentAssetHealth     = "asset_health"
	IntentWorkOrder       = "work_order"
	IntentCompliance      = "compliance"
	IntentDataQuery       = "data_query"
)

type intentRule struct {
	intent   string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Checked in order; the first rule with a matching pattern wins.
var intentRules = []intentRule{
	{IntentHiddenDiscovery, compileAll(
		`hidden`, `discovery`, `water\s*tree`, `underground\s*cable`,
		`rain.*voltage`, `voltage.*rain`, `ami.*correlat`, `moisture.*degrad`,
		`xlpe.*fail`, `cable.*fail`,
	)},
	{IntentFireRisk, compileAll(
		`fire\s*season`, `fire\s*risk`, `ignition`, `tier\s*3`, `hftd`,
		`fire\s*district`, `wildfire`, `psps`, `red\s*flag`,
	)},
	{IntentVegetation, compileAll(
		`vegetation`, `clearance`, `encroach`, `trim`, `go95`, `go\s*95`,
		`tree`, `eucalyptus`, `species`, `growth\s*rate`,
	)},
	{IntentAssetHealth, compileAll(
		`asset\s*health`, `pole`, `transformer`, `conductor`, `equipment`,
		`condition`, `replace`, `inspection`, `age`,
	)},
	{IntentWorkOrder, compileAll(
		`work\s*order`, `priority`, `backlog`, `schedule`, `crew`,
		`issue.*order`, `create.*order`,
	)},
	{IntentCompliance, compileAll(
		`compliance`, `violation`, `cpuc`, `regulat`, `standard`,
	)},
}

// ClassifyIntent maps a message to the intent whose keywords it mentions
// first in priority order, or data_query when none match.
func ClassifyIntent(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				return rule.intent
			}
		}
	}
	return IntentDataQuery
}

// Reply is the orchestrator's answer to one message.
type Reply struct {
	Narrative      string          `json:"narrative"`
	Agent          string          `json:"agent"`
	Persona        model.Persona   `json:"persona"`
	Intent         string          `json:"intent"`
	Sources        []string        `json:"sources"`
	Data           map[string]any  `json:"data"`
	Visualization  string          `json:"visualization,omitempty"`
	AlertLevel     string          `json:"alert_level,omitempty"`
	ActionRequired string          `json:"action_required,omitempty"`
	FireSeason     model.Countdown `json:"fire_season"`
	SessionID      string          `json:"session_id"`
}

// Warehouse is the read side of storage used by the agents.
type Warehouse interface {
	ListAssets(ctx context.Context, f model.AssetFilter) ([]model.Asset, error)
	GetAsset(ctx context.Context, assetID string) (model.Asset, error)
	ListVegetation(ctx context.Context, region string) ([]model.Encroachment, error)
	EncroachmentsForAsset(ctx context.Context, assetID string) ([]model.Encroachment, error)
	RegionCompliance(ctx context.Context) ([]model.RegionCompliance, error)
	TrimPriorities(ctx context.Context, limit int) ([]model.Encroachment, error)
	OpenWorkOrders(ctx context.Context, limit int) ([]model.WorkOrder, error)
	WorkOrdersForAsset(ctx context.Context, assetID string) ([]model.WorkOrder, error)
	PSPSCircuits(ctx context.Context, tiers []string, limit int) ([]model.Circuit, error)
	WeatherForecasts(ctx context.Context) ([]model.WeatherForecast, error)
	IgnitionRiskPredictions(ctx context.Context, limit int) ([]model.IgnitionRiskPrediction, error)
	CableFailurePredictions(ctx context.Context, limit int) ([]model.CableFailurePrediction, error)
	WaterTreeingCandidates(ctx context.Context) ([]model.WaterTreeingCandidate, error)
	AMIReadings(ctx context.Context, limit int) ([]model.AMIReading, error)
	AMIAnomalies(ctx context.Context, limit int) ([]model.AMIReading, error)
}

// Asker answers free-form data questions.
type Asker interface {
	Ask(ctx context.Context, question string) (analyst.Result, error)
}

// agentReply is what a specialist agent returns before the orchestrator
// adds routing metadata.
type agentReply struct {
	narrative      string
	data           map[string]any
	sources        []string
	actionRequired string
}

type clock func() time.Time

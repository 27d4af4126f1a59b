package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/session"
)

// Agent names reported on replies.
const (
	AgentVegetation   = "Vegetation Guardian"
	AgentFireRisk     = "Fire Risk Analyst"
	AgentAsset        = "Asset Inspector"
	AgentDiscovery    = "Water Treeing Detective"
	AgentDataAnalyst  = "Data Analyst"
	AgentOrchestrator = "VIGIL Orchestrator"
)

const warehouseSource = "RISK_PLANNING_DB"

var (
	assetIDPattern = regexp.MustCompile(`(?i)\bAST-\d+\b`)
	amiPattern     = regexp.MustCompile(`\bami\b|correlat`)
)

// Request is one chat message with optional context overrides.
type Request struct {
	Message   string
	Persona   string
	SessionID string
	AssetID   string
	Region    string
}

// Orchestrator classifies messages and routes them to the specialist
// agents. Conversation context is kept per session id.
type Orchestrator struct {
	analyst  Asker
	sessions session.Store
	logger   *slog.Logger
	now      clock

	vegetation vegetationGuardian
	fire       fireRiskAnalyst
	assets     assetInspector
	discovery  waterTreeingDetective
}

// New creates an Orchestrator. analyst may be nil, in which case free-form
// data questions get the help message.
func New(store Warehouse, analyst Asker, sessions session.Store, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		analyst:  analyst,
		sessions: sessions,
		logger:   logger.With("component", "orchestrator"),
		now:      time.Now,
	}
	o.setClock(o.now)
	o.vegetation.store = store
	o.fire.store = store
	o.assets.store = store
	o.discovery.store = store
	return o
}

func (o *Orchestrator) setClock(now clock) {
	o.now = now
	o.vegetation.now = now
	o.fire.now = now
	o.assets.now = now
}

// Process answers a message and saves the session context. Failures are
// reported in the narrative.
func (o *Orchestrator) Process(ctx context.Context, req Request) Reply {
	st := o.loadSession(ctx, req.SessionID)
	if ValidPersona(req.Persona) {
		st.Persona = req.Persona
	}
	if req.AssetID != "" {
		st.CurrentAsset = req.AssetID
	}
	if req.Region != "" {
		st.CurrentRegion = req.Region
	}

	intent := ClassifyIntent(req.Message)
	st.LastIntent = intent
	o.logger.Info("classified intent", "intent", intent, "session_id", st.ID)

	reply, err := o.route(ctx, intent, req.Message, &st)
	if err != nil {
		o.logger.Error("process message", "intent", intent, "error", err)
		reply = Reply{
			Narrative: fmt.Sprintf("I encountered an error: %s. Please try rephrasing your question.", err),
			Agent:     AgentOrchestrator,
			Sources:   []string{},
			Data:      map[string]any{},
		}
	}
	reply.Intent = intent
	reply.Persona = PersonaFor(st.Persona)
	reply.FireSeason = model.FireSeasonCountdown(o.now())
	reply.SessionID = st.ID

	if err := o.sessions.Save(ctx, st); err != nil {
		o.logger.Warn("save session", "session_id", st.ID, "error", err)
	}
	return reply
}

func (o *Orchestrator) loadSession(ctx context.Context, id string) session.State {
	if id != "" {
		st, err := o.sessions.Load(ctx, id)
		if err == nil {
			if !ValidPersona(st.Persona) {
				st.Persona = DefaultPersona
			}
			return st
		}
		if !errors.Is(err, session.ErrNotFound) {
			o.logger.Warn("load session", "session_id", id, "error", err)
		}
	} else {
		id = session.NewID()
	}
	return session.State{ID: id, Persona: DefaultPersona}
}

func (o *Orchestrator) route(ctx context.Context, intent, message string, st *session.State) (Reply, error) {
	lower := strings.ToLower(message)
	var (
		r             agentReply
		err           error
		agent, visual string
		alert         string
	)
	switch intent {
	case IntentHiddenDiscovery:
		agent = AgentDiscovery
		switch {
		case amiPattern.MatchString(lower):
			r, err = o.discovery.amiCorrelation(ctx)
			visual = "ami_correlation"
		case strings.Contains(lower, "cable health") || strings.Contains(lower, "xlpe"):
			r, err = o.discovery.cableHealth(ctx)
			visual = "cable_analysis"
		default:
			r, err = o.discovery.waterTreeingPattern(ctx)
			visual, alert = "water_treeing_map", "high"
		}

	case IntentFireRisk:
		agent, visual = AgentFireRisk, "fire_risk_dashboard"
		switch {
		case strings.Contains(lower, "psps"):
			r, err = o.fire.pspsCircuits(ctx)
		case strings.Contains(lower, "weather") || strings.Contains(lower, "red flag"):
			r, err = o.fire.weatherRisk(ctx)
		case strings.Contains(lower, "ignition"):
			r, err = o.fire.ignitionRisk(ctx)
		default:
			r, err = o.fire.overview(ctx)
		}

	case IntentVegetation:
		agent, visual = AgentVegetation, "vegetation_map"
		switch {
		case strings.Contains(lower, "compliance") || strings.Contains(lower, "go95"):
			r, err = o.vegetation.complianceSummary(ctx)
		case strings.Contains(lower, "priority") || strings.Contains(lower, "urgent"):
			r, err = o.vegetation.trimPriorities(ctx)
		default:
			r, err = o.vegetation.overview(ctx, st.CurrentRegion)
		}

	case IntentAssetHealth:
		agent, visual = AgentAsset, "asset_health_dashboard"
		id := assetIDPattern.FindString(message)
		if id == "" && strings.Contains(lower, "detail") {
			id = st.CurrentAsset
		}
		switch {
		case id != "":
			id = strings.ToUpper(id)
			st.CurrentAsset = id
			r, err = o.assets.detail(ctx, id)
		case strings.Contains(lower, "replace"):
			r, err = o.assets.replacementPriorities(ctx)
		case strings.Contains(lower, "inspection"):
			r, err = o.assets.inspectionSchedule(ctx)
		default:
			r, err = o.assets.overview(ctx, st.CurrentRegion)
		}

	case IntentWorkOrder:
		agent, visual = AgentVegetation, "work_order_list"
		if strings.Contains(lower, "issue") || strings.Contains(lower, "create") {
			if id := assetIDPattern.FindString(message); id != "" {
				st.CurrentAsset = strings.ToUpper(id)
			}
			r, err = o.vegetation.prepareWorkOrder(ctx, st.CurrentAsset)
		} else {
			r, err = o.vegetation.workOrderBacklog(ctx)
		}

	case IntentCompliance:
		agent, visual = AgentVegetation, "compliance_dashboard"
		r, err = o.vegetation.complianceSummary(ctx)

	default:
		return o.dataQuery(ctx, message, st.Persona), nil
	}
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Narrative:      r.narrative,
		Agent:          agent,
		Sources:        nonNil(r.sources),
		Data:           r.data,
		Visualization:  visual,
		AlertLevel:     alert,
		ActionRequired: r.actionRequired,
	}, nil
}

// dataQuery asks the analyst and formats its rows. Any failure, including
// no matching rule, yields the help message.
func (o *Orchestrator) dataQuery(ctx context.Context, message, persona string) Reply {
	if o.analyst != nil {
		res, err := o.analyst.Ask(ctx, message)
		if err == nil && len(res.Data) > 0 {
			return Reply{
				Narrative: FormatQueryResult(PersonaFor(persona), res),
				Agent:     AgentDataAnalyst,
				Sources:   []string{res.Source, warehouseSource},
				Data:      map[string]any{"sql": res.SQL, "row_count": len(res.Data)},
			}
		}
		if err != nil {
			o.logger.Warn("analyst could not answer", "error", err)
		}
	}
	return Reply{
		Narrative: HelpMessage(o.now()),
		Agent:     AgentOrchestrator,
		Sources:   []string{"VIGIL System"},
		Data:      map[string]any{},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

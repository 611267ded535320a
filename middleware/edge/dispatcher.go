package edge

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
	"edge-gateway/middleware/edge/policy"
)

const apiPrefix = "/api/"

type Options struct {
	// Policy zero (sem regras) usa policy.Default().
	Policy policy.Policy

	Store   domain.CounterStore
	Stats   domain.StatsStore
	Locator domain.Locator
	Clock   domain.Clock
	IDs     domain.IDGenerator
	Logger  *zerolog.Logger

	// Verbose registra a linha de performance de toda requisição, não só das lentas.
	Verbose bool
}

// Dispatcher executa o pipeline de admissão na ordem fixa:
// bypass, segurança, bot, rate limit (/api/), anotação, CORS (/api/), repasse.
type Dispatcher struct {
	classifier *application.RouteClassifier
	limiter    application.RateLimiter
	security   *application.SecurityFilter
	bots       *application.BotClassifier
	geo        application.GeoResolver
	annotate   Annotator
	cors       corsPolicy

	stats domain.StatsStore
	clock domain.Clock
	log   zerolog.Logger

	bypassPrefixes []string
	bypassSuffixes []string
	slow           time.Duration
	verbose        bool
}

func New(opts Options) (*Dispatcher, error) {
	p := opts.Policy
	if len(p.Rules) == 0 {
		p = policy.Default()
	}
	if p.SlowThreshold <= 0 {
		p.SlowThreshold = time.Second
	}

	classifier, err := application.NewRouteClassifier(p.Rules)
	if err != nil {
		return nil, fmt.Errorf("edge: %w", err)
	}
	bots := application.NewBotClassifier(p.BotSignatures)
	security, err := application.NewSecurityFilter(bots, p.SuspiciousPatterns)
	if err != nil {
		return nil, fmt.Errorf("edge: compile patterns: %w", err)
	}

	if opts.Clock == nil {
		opts.Clock = infra.SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = infra.UUIDGenerator{}
	}
	if opts.Locator == nil {
		opts.Locator = infra.HeaderLocator{}
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	d := &Dispatcher{
		classifier: classifier,
		limiter:    application.RateLimiter{Store: opts.Store},
		security:   security,
		bots:       bots,
		geo:        application.GeoResolver{Locator: opts.Locator},
		annotate:   Annotator{IDs: opts.IDs},
		cors:       newCORSPolicy(p.AllowedOrigins),
		stats:      opts.Stats,
		clock:      opts.Clock,
		log:        logger.With().Str("component", "edge").Logger(),
		slow:       p.SlowThreshold,
		verbose:    opts.Verbose,
	}
	for _, s := range p.BypassPrefixes {
		d.bypassPrefixes = append(d.bypassPrefixes, strings.ToLower(s))
	}
	for _, s := range p.BypassSuffixes {
		d.bypassSuffixes = append(d.bypassSuffixes, strings.ToLower(s))
	}
	return d, nil
}

// Middleware monta o Dispatcher e devolve o wrapper no formato func(http.Handler) http.Handler.
func Middleware(opts Options) (func(next http.Handler) http.Handler, error) {
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	return d.Wrap, nil
}

// Rules devolve a tabela de regras em uso, com a default por último.
func (d *Dispatcher) Rules() []domain.Rule { return d.classifier.Rules() }

// Route descreve o tratamento que um path recebe no pipeline.
type Route struct {
	Path   string
	Bypass bool
	API    bool
	Rule   domain.Rule
}

// Explain classifica o path sem executar o pipeline.
func (d *Dispatcher) Explain(path string) Route {
	rt := Route{Path: path}
	if d.isStaticAsset(path) {
		rt.Bypass = true
		return rt
	}
	if isAPI(path) {
		rt.API = true
		rt.Rule = d.classifier.Classify(path)
	}
	return rt
}

func (d *Dispatcher) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.isStaticAsset(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		st, done := d.admit(w, r)
		if done {
			return
		}
		d.pass(w, r, next, st)
	})
}

func (d *Dispatcher) isStaticAsset(path string) bool {
	p := strings.ToLower(path)
	for _, prefix := range d.bypassPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for _, suffix := range d.bypassSuffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func isAPI(path string) bool { return strings.HasPrefix(path, apiPrefix) }

// admission carrega o que o pipeline já sabe da requisição.
type admission struct {
	start  time.Time
	loc    domain.Location
	ua     string
	ruleID string
	key    domain.Key
}

// admit roda os estados até o repasse. done=true quando a resposta já foi escrita.
func (d *Dispatcher) admit(w http.ResponseWriter, r *http.Request) (st admission, done bool) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("edge pipeline panic")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			done = true
		}
	}()

	st = admission{
		start: d.clock.Now(),
		loc:   d.geo.Resolve(r),
		ua:    r.UserAgent(),
	}
	h := w.Header()

	url := requestURL(r)
	if v := d.security.Evaluate(application.SecurityRequest{URL: url, UserAgent: st.ua}); !v.Allowed {
		d.forbid(w, r, st, v.Reason, url)
		return st, true
	}

	if d.bots.IsBot(st.ua) {
		d.annotate.Bot(h, r.URL.Path == "/")
	}

	api := isAPI(r.URL.Path)
	if api {
		rule := d.classifier.Classify(r.URL.Path)
		st.ruleID = rule.ID
		st.key = domain.NewKey(st.loc.IP, rule.ID)

		dec, err := d.limiter.CheckAndConsume(r.Context(), st.loc.IP, rule, st.start)
		if err != nil {
			d.log.Error().Err(err).Str("key", string(st.key)).Msg("rate limit store failed, admitting request")
		}
		d.annotate.RateLimit(h, dec)
		if !dec.Allowed {
			d.throttle(w, r, st, dec)
			return st, true
		}
	}

	d.annotate.Region(h, st.loc)
	d.annotate.Security(h)
	d.annotate.Trace(h, st.start)

	if api {
		d.cors.apply(h, r.Header.Get("Origin"))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			d.record(r, st, domain.OutcomePreflight, true)
			return st, true
		}
	}

	d.annotate.Timing(h, d.clock.Now().Sub(st.start))
	d.record(r, st, domain.OutcomePassed, true)
	return st, false
}

// pass repassa ao próximo handler e emite a linha de performance
// quando em modo verbose ou acima do limiar de lentidão.
func (d *Dispatcher) pass(w http.ResponseWriter, r *http.Request, next http.Handler, st admission) {
	rw := &responseWriter{ResponseWriter: w}
	next.ServeHTTP(rw, r)

	total := d.clock.Now().Sub(st.start)
	slow := total > d.slow
	if !d.verbose && !slow {
		return
	}

	ev, msg := d.log.Info(), "request"
	if slow {
		ev, msg = d.log.Warn(), "slow request"
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rw.Status()).
		Int64("duration", total.Milliseconds()).
		Int64("size", rw.size).
		Str("user_agent", truncate(st.ua, maxLoggedUserAgent)).
		Str("ip", st.loc.IP).
		Time("timestamp", st.start).
		Msg(msg)
}

// record é best-effort: falha no sink de estatísticas nunca afeta a resposta.
func (d *Dispatcher) record(r *http.Request, st admission, outcome domain.Outcome, allowed bool) {
	if d.stats == nil {
		return
	}
	ev := domain.StatsEvent{
		Key:      st.key,
		RuleID:   st.ruleID,
		Outcome:  outcome,
		Allowed:  allowed,
		Method:   r.Method,
		Path:     r.URL.Path,
		At:       st.start,
		Duration: d.clock.Now().Sub(st.start),
	}
	if err := d.stats.Record(r.Context(), ev); err != nil {
		d.log.Debug().Err(err).Str("outcome", string(outcome)).Msg("stats record failed")
	}
}

// requestURL reconstrói a URL completa vista pelo cliente.
func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

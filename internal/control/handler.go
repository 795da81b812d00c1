package control

import (
	"strings"

	"meteodata.example/meteodata-server/internal/metrics"
)

// Handler is one link in the chain-of-responsibility that answers a control
// query. Each handler owns a category ("general", "connectors") and a set
// of named verbs; a query whose category does not match is passed to the
// next handler in the chain, mirroring the original daemon's
// QueryHandler::handleQuery.
type Handler interface {
	// HandleQuery attempts to answer query. ok is false when this handler's
	// category did not match and the caller should try the next handler.
	HandleQuery(query string) (answer string, ok bool)
}

// verbFunc answers one verb within a category, given the remainder of the
// query line after category and verb.
type verbFunc func(arg string) string

// baseHandler implements the category/verb dispatch shared by every
// concrete handler: split the query into category, verb and the rest of the
// line, match category, fall back to defaultVerb when no verb is given.
type baseHandler struct {
	category    string
	defaultVerb string
	verbs       map[string]verbFunc
}

func newBaseHandler(category, defaultVerb string) baseHandler {
	return baseHandler{category: category, defaultVerb: defaultVerb, verbs: make(map[string]verbFunc)}
}

func (h *baseHandler) register(verb string, fn verbFunc) {
	h.verbs[verb] = fn
}

func (h *baseHandler) HandleQuery(query string) (string, bool) {
	fields := strings.Fields(query)
	if len(fields) == 0 || fields[0] != h.category {
		return "", false
	}

	verb := h.defaultVerb
	rest := ""
	if len(fields) > 1 {
		verb = fields[1]
		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(query, fields[0]), " "+verb))
	}

	fn, known := h.verbs[verb]
	if !known {
		return "", false
	}
	metrics.ControlCommandsTotal.WithLabelValues(h.category, verb).Inc()
	return fn(rest), true
}

// Chain runs a query through an ordered list of handlers, first match wins,
// matching handleQuery's recursive _next lookup.
func Chain(handlers []Handler, query string) string {
	for _, h := range handlers {
		if answer, ok := h.HandleQuery(query); ok {
			return answer
		}
	}
	return ""
}

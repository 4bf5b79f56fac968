package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers and middleware into the API mux. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Appointments *AppointmentHandler
	Calendar     *CalendarHandler
	Middleware   []func(http.Handler) http.Handler
}

// route binds an HTTP method to a handler.
type route struct {
	method  string
	handler http.HandlerFunc
}

// methods dispatches on the request method in declaration order and answers
// 405 with an Allow header listing the declared methods otherwise.
func methods(routes ...route) http.HandlerFunc {
	allowed := make([]string, 0, len(routes))
	for _, rt := range routes {
		allowed = append(allowed, rt.method)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		for _, rt := range routes {
			if r.Method == rt.method {
				rt.handler(w, r)
				return
			}
		}
		methodNotAllowed(w, allowed...)
	}
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	health := func(w http.ResponseWriter, r *http.Request) {
		newResponder(nil).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
	mux.HandleFunc("/health", methods(route{http.MethodGet, health}, route{http.MethodHead, health}))

	if h := cfg.Appointments; h != nil {
		mux.HandleFunc("/appointments", methods(
			route{http.MethodGet, h.List},
			route{http.MethodPost, h.Create},
		))

		conflicts := methods(route{http.MethodPost, h.Conflicts})
		stream := methods(route{http.MethodGet, h.Stream})
		item := methods(
			route{http.MethodGet, h.Get},
			route{http.MethodPut, h.Update},
			route{http.MethodDelete, h.Delete},
		)
		mux.HandleFunc("/appointments/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/appointments/")
			switch {
			case id == "" || strings.Contains(id, "/"):
				http.NotFound(w, r)
			case id == "conflicts":
				conflicts(w, r)
			case id == "stream":
				stream(w, r)
			default:
				item(w, r.WithContext(ContextWithAppointmentID(r.Context(), id)))
			}
		})
	}

	if h := cfg.Calendar; h != nil {
		mux.HandleFunc("/calendar/month", methods(route{http.MethodGet, h.Month}))
		mux.HandleFunc("/calendar/day", methods(route{http.MethodGet, h.Day}))
		mux.HandleFunc("/calendar.ics", methods(
			route{http.MethodGet, h.ExportICS},
			route{http.MethodPost, h.ImportICS},
		))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if mw := cfg.Middleware[i]; mw != nil {
			handler = mw(handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

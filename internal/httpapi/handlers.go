package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
)

// Request bodies. Presence of required fields is checked by the service so
// that every surface reports the same messages; the tags bound sizes only.

type nameRequest struct {
	Name string `json:"name" validate:"max=64"`
}

type pairRequest struct {
	Pokemon1 string `json:"pokemon1" validate:"max=64"`
	Pokemon2 string `json:"pokemon2" validate:"max=64"`
}

type teamRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

type matchupRequest struct {
	Pokemon1     string `json:"pokemon1" validate:"max=64"`
	Pokemon2     string `json:"pokemon2" validate:"max=64"`
	BattleFormat string `json:"battle_format" validate:"max=32"`
}

type teamAnalysisRequest struct {
	TeamMembers []string `json:"team_members" validate:"dive,max=64"`
}

type bulkRequest struct {
	Names []string `json:"names" validate:"dive,max=64"`
}

type competitiveRequest struct {
	PokemonName string `json:"pokemon_name" validate:"max=64"`
	Format      string `json:"format" validate:"max=32"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// operation runs a service call for a decoded request
type operation[T any] func(ctx context.Context, req *T) (any, error)

func serve[T any](s *Server, op operation[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := s.decode(w, r, &req); err != nil {
			s.respond(w, r, nil, err)
			return
		}
		result, err := op(r.Context(), &req)
		s.respond(w, r, result, err)
	}
}

func (s *Server) handlePokemonInfo(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *nameRequest) (any, error) {
		return s.svc.PokemonInfo(ctx, req.Name)
	})(w, r)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *pairRequest) (any, error) {
		return s.svc.Compare(ctx, req.Pokemon1, req.Pokemon2)
	})(w, r)
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *nameRequest) (any, error) {
		return s.svc.Counters(ctx, req.Name)
	})(w, r)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *teamRequest) (any, error) {
		return s.svc.GenerateTeam(ctx, req.Description)
	})(w, r)
}

func (s *Server) handleMatchup(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *matchupRequest) (any, error) {
		return s.svc.AnalyzeMatchup(ctx, req.Pokemon1, req.Pokemon2, req.BattleFormat)
	})(w, r)
}

func (s *Server) handleTeamAnalysis(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *teamAnalysisRequest) (any, error) {
		return s.svc.TeamAnalysis(ctx, req.TeamMembers)
	})(w, r)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *bulkRequest) (any, error) {
		return s.svc.BulkLookup(ctx, req.Names)
	})(w, r)
}

func (s *Server) handleCompetitive(w http.ResponseWriter, r *http.Request) {
	serve(s, func(ctx context.Context, req *competitiveRequest) (any, error) {
		return s.svc.CompetitiveAnalysis(ctx, req.PokemonName, req.Format)
	})(w, r)
}

// handleHealth reports the live self test. An unhealthy report is still
// returned as the result, with 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.HealthCheck(r.Context())
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		env := service.Wrap(nil, err)
		env.Result = report
		writeJSON(w, http.StatusServiceUnavailable, env)
		return
	}
	writeJSON(w, http.StatusOK, service.Wrap(report, nil))
}

// decode reads a JSON body into dst. An empty body decodes as {}.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pokemon.InvalidInputf("Request body too large.")
		}
		return pokemon.InvalidInputf("Unable to read request body.")
	}

	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return pokemon.InvalidInputf("Invalid JSON body: %s", err.Error())
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return pokemon.InvalidInputf("Invalid '%s': failed %s=%s.", fe.Field(), fe.Tag(), fe.Param())
		}
		return pokemon.InvalidInputf("Invalid request: %s", err.Error())
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, result any, err error) {
	status := service.StatusCode(err)
	if err != nil {
		fields := []zap.Field{
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			s.log.Error("request failed", fields...)
		} else {
			s.log.Info("request rejected", fields...)
		}
	}
	writeJSON(w, status, service.Wrap(result, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

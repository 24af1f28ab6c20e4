package test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/jointaccount"
)

// SignRequestServer is an in-memory stand-in for the joint-account sign
// request backend, good enough to exercise the client and tracker against
// real HTTP.
type SignRequestServer struct {
	URL string

	mu        sync.Mutex
	proposals map[string]*jointaccount.Proposal
	server    *httptest.Server

	// Expiry applied to created proposals.
	TTL time.Duration
	// Threshold applied to created proposals; derived from the
	// participant count when zero.
	Threshold int
	// Participants recorded on created proposals.
	Participants []string
}

// WithTestSignRequestServer runs the closure against a fresh mock backend
// and a client wired to it.
func WithTestSignRequestServer(t *testing.T, closure func(srv *SignRequestServer, client *jointaccount.Client)) {
	t.Helper()

	srv := NewSignRequestServer(t)
	defer srv.Close()

	client, err := jointaccount.NewClient(config.MobileAPIConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	closure(srv, client)
}

// NewSignRequestServer starts the mock backend.
func NewSignRequestServer(t *testing.T) *SignRequestServer {
	t.Helper()

	s := &SignRequestServer{
		proposals: make(map[string]*jointaccount.Proposal),
		TTL:       time.Hour,
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/joint-accounts/sign-requests/", s.create)
	e.GET("/joint-accounts/sign-requests/:id/", s.get)
	e.POST("/joint-accounts/sign-requests/:id/responses/:participant/", s.respond)
	e.POST("/joint-accounts/sign-requests/search/", s.search)

	s.server = httptest.NewServer(e)
	s.URL = s.server.URL

	return s
}

// Close shuts the mock backend down.
func (s *SignRequestServer) Close() {
	s.server.Close()
}

// Proposal returns the stored proposal, for assertions.
func (s *SignRequestServer) Proposal(id string) *jointaccount.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.proposals[id]
}

// SetProposal overwrites a stored proposal, for test setup.
func (s *SignRequestServer) SetProposal(p *jointaccount.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proposals[p.ID] = p
}

func (s *SignRequestServer) create(c echo.Context) error {
	var input jointaccount.CreateSignRequestInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	participants := s.Participants
	if len(participants) == 0 {
		participants = []string{input.Proposer}
	}
	threshold := s.Threshold
	if threshold == 0 {
		threshold = len(participants)
	}

	now := time.Now()
	p := &jointaccount.Proposal{
		ID:                  uuid.NewString(),
		JointAddress:        input.JointAddress,
		Proposer:            input.Proposer,
		Type:                input.Type,
		Threshold:           threshold,
		Participants:        participants,
		RawTransactionLists: input.RawTransactionLists,
		Status:              jointaccount.StatusPending,
		ExpiresAt:           now.Add(s.TTL),
	}
	for _, r := range input.Responses {
		r.SubmittedAt = now
		p.Responses = append(p.Responses, r)
	}
	p.Status = jointaccount.EvaluateStatus(p, now)
	s.proposals[p.ID] = p

	return c.JSON(http.StatusCreated, p)
}

func (s *SignRequestServer) get(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "sign request not found")
	}
	p.Status = jointaccount.EvaluateStatus(p, time.Now())

	return c.JSON(http.StatusOK, p)
}

func (s *SignRequestServer) respond(c echo.Context) error {
	var input jointaccount.SignResponseInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	participant := c.Param("participant")

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[c.Param("id")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "sign request not found")
	}
	if p.Status.Terminal() {
		return echo.NewHTTPError(http.StatusGone, "sign request is terminal")
	}
	if jointaccount.HasResponded(p, participant) {
		return echo.NewHTTPError(http.StatusConflict, "participant has already responded")
	}

	now := time.Now()
	p.Responses = append(p.Responses, jointaccount.SignResponse{
		Participant: participant,
		Outcome:     input.Outcome,
		Signatures:  input.Signatures,
		SubmittedAt: now,
	})
	p.Status = jointaccount.EvaluateStatus(p, now)

	return c.JSON(http.StatusOK, p)
}

func (s *SignRequestServer) search(c echo.Context) error {
	var filter jointaccount.SearchFilter
	if err := c.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	results := []*jointaccount.Proposal{}
	for _, p := range s.proposals {
		p.Status = jointaccount.EvaluateStatus(p, now)
		if matchesFilter(p, filter) {
			results = append(results, p)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

func matchesFilter(p *jointaccount.Proposal, f jointaccount.SearchFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if len(f.JointAddresses) > 0 && !containsString(f.JointAddresses, p.JointAddress) {
		return false
	}
	if len(f.ParticipantAddresses) > 0 {
		found := false
		for _, participant := range p.Participants {
			if containsString(f.ParticipantAddresses, participant) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

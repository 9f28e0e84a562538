// internal/handlers/party_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/auth"
	"github.com/squadup/squadup/internal/lobby"
	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/registry"
)

// newTestServer builds a Server over an in-memory registry with no database
// or presence backend.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	auth.Init() // ephemeral keys, no DB needed

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	reg := registry.New(log)
	t.Cleanup(reg.Close)

	agg := lobby.NewAggregator(reg, nil)
	hub := NewHub(log, agg)
	t.Cleanup(hub.Close)

	return NewServer(log, reg, agg, nil, nil, hub)
}

// TestPartyCreate checks that /party/create registers a party owned by the caller.
func TestPartyCreate(t *testing.T) {
	s := newTestServer(t)

	uHost := uuid.New()
	token, _ := auth.CreateJWT(uHost.String())

	body := `{"game_id":"` + uuid.New().String() + `","max_size":4,` +
		`"tags":[{"id":"1","title":"PC","type":"device"}]}`
	req := httptest.NewRequest("POST", "/party/create", bytes.NewBuffer([]byte(body)))
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()

	s.CreatePartyHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var p models.Party
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode party: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatalf("party has no ID")
	}
	if p.CreatorID != uHost {
		t.Fatalf("party creator mismatch, expected %v got %v", uHost, p.CreatorID)
	}
	if len(p.Members) != 1 || p.Members[0] != uHost {
		t.Fatalf("expected creator as sole member, got %v", p.Members)
	}
}

// TestPartyCreateRequiresAuth checks that an unauthenticated create is rejected.
func TestPartyCreateRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/party/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	s.CreatePartyHandler(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

// TestPartyJoinLeaveFlow drives create -> join -> full -> leave through the
// HTTP surface.
func TestPartyJoinLeaveFlow(t *testing.T) {
	s := newTestServer(t)

	host, guest, third := uuid.New(), uuid.New(), uuid.New()
	hostToken, _ := auth.CreateJWT(host.String())
	guestToken, _ := auth.CreateJWT(guest.String())
	thirdToken, _ := auth.CreateJWT(third.String())

	// host creates a 2-seat party
	body := `{"game_id":"` + uuid.New().String() + `","max_size":2,"tags":[]}`
	req := httptest.NewRequest("POST", "/party/create", bytes.NewBufferString(body))
	req.Header.Set("Cookie", "auth_token="+hostToken)
	w := httptest.NewRecorder()
	s.CreatePartyHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	var p models.Party
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode party: %v", err)
	}

	joinBody := `{"party_id":"` + p.ID.String() + `"}`

	// guest joins; party becomes full
	req2 := httptest.NewRequest("POST", "/party/join", bytes.NewBufferString(joinBody))
	req2.Header.Set("Cookie", "auth_token="+guestToken)
	w2 := httptest.NewRecorder()
	s.JoinPartyHandler(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("join failed: %d %s", w2.Code, w2.Body.String())
	}
	var joined models.Party
	if err := json.Unmarshal(w2.Body.Bytes(), &joined); err != nil {
		t.Fatalf("failed to decode joined party: %v", err)
	}
	if joined.State != models.PartyFull {
		t.Fatalf("expected full party, got state %q", joined.State)
	}

	// a third user is rejected with 409
	req3 := httptest.NewRequest("POST", "/party/join", bytes.NewBufferString(joinBody))
	req3.Header.Set("Cookie", "auth_token="+thirdToken)
	w3 := httptest.NewRecorder()
	s.JoinPartyHandler(w3, req3)
	if w3.Code != http.StatusConflict {
		t.Fatalf("expected 409 for full party, got %d", w3.Code)
	}

	// guest leaves again
	req4 := httptest.NewRequest("POST", "/party/leave", bytes.NewBufferString(joinBody))
	req4.Header.Set("Cookie", "auth_token="+guestToken)
	w4 := httptest.NewRecorder()
	s.LeavePartyHandler(w4, req4)
	if w4.Code != http.StatusOK {
		t.Fatalf("leave failed: %d %s", w4.Code, w4.Body.String())
	}
}

// TestListPartiesFilter checks the joined/unjoined membership filters.
func TestListPartiesFilter(t *testing.T) {
	s := newTestServer(t)
	game := uuid.New()

	u1, u2 := uuid.New(), uuid.New()
	t1, _ := auth.CreateJWT(u1.String())
	t2, _ := auth.CreateJWT(u2.String())

	for _, tok := range []string{t1, t2} {
		body := `{"game_id":"` + game.String() + `","max_size":4,"tags":[]}`
		req := httptest.NewRequest("POST", "/party/create", bytes.NewBufferString(body))
		req.Header.Set("Cookie", "auth_token="+tok)
		w := httptest.NewRecorder()
		s.CreatePartyHandler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("create failed: %d", w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/party/list?game="+game.String()+"&filter=joined", nil)
	req.Header.Set("Cookie", "auth_token="+t1)
	w := httptest.NewRecorder()
	s.ListPartiesHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", w.Code, w.Body.String())
	}

	var parties []models.Party
	if err := json.Unmarshal(w.Body.Bytes(), &parties); err != nil {
		t.Fatalf("failed to decode parties: %v", err)
	}
	if len(parties) != 1 {
		t.Fatalf("expected 1 joined party, got %d", len(parties))
	}
	if !parties[0].HasMember(u1) {
		t.Fatalf("joined filter returned a party without the viewer")
	}
}

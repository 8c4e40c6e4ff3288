package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/ELMGHARU/detection-tracker/pkg/concurrent"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type wsNavigationRequest struct {
	Action string `json:"action" validate:"required,oneof=start position stop"`

	OriginLat      float64 `json:"origin_lat"`
	OriginLon      float64 `json:"origin_lon"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLon float64 `json:"destination_lon"`

	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	SpeedMps  float64 `json:"speed_mps"`
	Timestamp string  `json:"timestamp"`
}

// User is one websocket client running at most one navigation session. The
// session follows the connection, a disconnect stops it.
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub

	sessionID uint64
	active    bool
}

func (u *User) readRequest() (*wsNavigationRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &wsNavigationRequest{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}

// HandleNavigation serves one websocket message: start a session, push a
// position fix into it, or stop it. Every answer carries the latest session
// snapshot.
func (u *User) HandleNavigation() error {
	req, err := u.readRequest()
	if err != nil {
		u.conn.Close()
		return err
	}

	if req == nil {
		return nil
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return u.writeError(http.StatusBadRequest, fmt.Sprintf("validation error: %v", vvString))
	}

	switch req.Action {
	case "start":
		return u.handleStart(req)
	case "position":
		return u.handlePosition(req)
	default:
		return u.handleStop()
	}
}

func (u *User) handleStart(req *wsNavigationRequest) error {
	if u.active {
		return u.writeError(http.StatusConflict, "navigation already active on this connection, send stop first")
	}

	id, snap, err := u.hub.navigationService.StartNavigation(context.Background(),
		req.OriginLat, req.OriginLon, req.DestinationLat, req.DestinationLon)
	if err != nil {
		return u.writeError(http.StatusUnprocessableEntity, err.Error())
	}

	u.sessionID = id
	u.active = true
	return u.write(envelope{"data": NewSnapshotResponse(id, snap)})
}

func (u *User) handlePosition(req *wsNavigationRequest) error {
	if !u.active {
		return u.writeError(http.StatusConflict, "no active navigation on this connection, send start first")
	}

	update := positionUpdateRequest{Lat: req.Lat, Lon: req.Lon, SpeedMps: req.SpeedMps, Timestamp: req.Timestamp}
	snap, err := u.hub.navigationService.PushPosition(u.sessionID, update.Lat, update.Lon, update.SpeedMps, update.At())
	if err != nil {
		return u.writeError(http.StatusUnprocessableEntity, err.Error())
	}

	return u.write(envelope{"data": NewSnapshotResponse(u.sessionID, snap)})
}

func (u *User) handleStop() error {
	if !u.active {
		return u.write(envelope{"data": stopNavigationResponse{Stopped: false}})
	}

	id := u.sessionID
	u.active = false
	u.sessionID = 0
	if err := u.hub.navigationService.StopNavigation(id); err != nil {
		return u.writeError(http.StatusUnprocessableEntity, err.Error())
	}

	return u.write(envelope{"data": stopNavigationResponse{SessionID: id, Stopped: true}})
}

func (u *User) writeError(status int, message string) error {
	return u.write(envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	navigationService NavigationService

	pool *concurrent.GoPool
}

func NewHub(pool *concurrent.GoPool, navigationService NavigationService) *Hub {
	return &Hub{
		pool:              pool,
		ns:                make(map[uint]*User),
		us:                make([]*User, 0),
		navigationService: navigationService,
	}
}

func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

// Remove drops the user from the hub and stops any navigation session still
// bound to the connection.
func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	if _, ok := h.ns[user.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs
	h.mu.Unlock()

	if user.active {
		user.active = false
		_ = h.navigationService.StopNavigation(user.sessionID)
	}
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := make([]*User, len(h.us))
	copy(users, h.us)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}

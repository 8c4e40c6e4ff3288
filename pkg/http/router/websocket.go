package router

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/concurrent"
	"github.com/ELMGHARU/detection-tracker/pkg/http/router/controllers"
	http_server "github.com/ELMGHARU/detection-tracker/pkg/http/server"
	"github.com/gobwas/ws"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

/*
handleWebsocket runs the live navigation endpoint on a raw tcp listener with
the epoll api instead of one goroutine per connection,
ref: https://sergey.kamardin.org/articles/million-websockets-and-go/

netpoll registers every socket file descriptor in the epoll interest list and
calls back when a descriptor is readable, a bounded goroutine pool does the
actual reads. This keeps the per-connection memory at the descriptor level
until a client actually sends a position.
*/
func (api *API) handleWebsocket(ctx context.Context, config http_server.Config,
	navigationService controllers.NavigationService, errChan chan error,
) {
	var err error

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		errChan <- err
		return
	}
	api.log.Info(fmt.Sprintf("live navigation websocket API run on port %d", config.WebsocketPort))

	acceptDesc := netpoll.Must(netpoll.HandleListener(
		ln, netpoll.EventRead|netpoll.EventOneShot,
	))

	api.poller, err = netpoll.New(nil)
	if err != nil {
		errChan <- err
		return
	}

	api.pool = concurrent.NewGoPool(15, 10)

	api.hub = controllers.NewHub(api.pool, navigationService)

	api.pool.Spawn(10)

	// accept signals the result of the next ln.Accept()
	accept := make(chan error, 1)

	api.poller.Start(acceptDesc, func(conn netpoll.Event) {
		defer api.poller.Resume(acceptDesc)

		err := api.pool.ScheduleTimeout(1000*time.Millisecond, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err != nil {
			// pool saturated or accept failed, cool the listener down briefly
			// instead of spinning
			if err == concurrent.ErrScheduleTimeout {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				delay := 5 * time.Millisecond
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, delay)
				time.Sleep(delay)
			} else {
				api.log.Sugar().Errorf("accept error: %v", err)
			}
		}
	})

	<-ctx.Done()

	ln.Close()

	api.hub.RemoveAllUser()
	api.poller.Stop(acceptDesc)

	api.pool.Close()

	api.log.Info("websocket server stopped")
}

// handle upgrades one accepted connection and puts its descriptor on the
// epoll interest list. Reads only happen when epoll reports the descriptor
// ready, scheduled on the shared goroutine pool.
func (api *API) handle(conn net.Conn) {
	br := bufio.NewReader(conn)

	rw := struct {
		io.Reader
		io.Writer
	}{br, conn}

	hs, err := ws.Upgrade(rw)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	user := api.hub.Register(conn)

	desc := netpoll.Must(netpoll.HandleRead(conn))

	api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			// peer closed its end, drop the descriptor and stop any session
			// still bound to the connection
			api.log.Info("user disconnected from websocket server")

			api.poller.Stop(desc)
			api.hub.Remove(user)
			return
		}

		api.pool.Schedule(func() {
			err := user.HandleNavigation()
			if err != nil {
				api.log.Error("error handling navigation message", zap.Error(err))
				api.poller.Stop(desc)
				api.hub.Remove(user)
			}
		})
	})
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}

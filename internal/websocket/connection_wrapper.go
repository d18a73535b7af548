package websocket

import (
	"github.com/gorilla/websocket"
)

// gorillaConn adapts *websocket.Conn to Connection. Only RemoteAddr needs
// adapting; every other method is promoted from the embedded conn.
type gorillaConn struct {
	*websocket.Conn
}

// WrapConn returns conn as a Connection.
func WrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

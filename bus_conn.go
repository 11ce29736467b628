//go:build linux

package shutdownguard

import (
	"fmt"
	"io"
	"os"

	"github.com/godbus/dbus/v5"
)

// systemBus is a busConn backed by a private connection to the D-Bus system bus.
type systemBus struct {
	conn *dbus.Conn
}

var _ busConn = &systemBus{}

func dialSystemBus() (busConn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return &systemBus{conn: conn}, nil
}

func (b *systemBus) AddMatch(rule string) error {
	return b.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err
}

func (b *systemBus) Signal(ch chan<- *dbus.Signal) {
	b.conn.Signal(ch)
}

func (b *systemBus) Connected() bool {
	return b.conn.Connected()
}

func (b *systemBus) Inhibit(what, who, why, mode string) (io.Closer, error) {
	var fd dbus.UnixFD
	obj := b.conn.Object(login1Destination, dbus.ObjectPath(login1Path))
	if err := obj.Call(login1Manager+".Inhibit", 0, what, who, why, mode).Store(&fd); err != nil {
		return nil, fmt.Errorf("take %s inhibitor lock: %w", mode, err)
	}
	return os.NewFile(uintptr(fd), "logind-inhibitor"), nil
}

func (b *systemBus) Close() error {
	return b.conn.Close()
}

package canbus

import (
	"context"
	"fmt"
	"io"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

type Writer interface {
	WriteFrame(ctx context.Context, s Stamped) error
	Close() error
}

// SocketCANWriter transmits frames on a SocketCAN interface such as vcan0.
type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial: %w", err)
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, s Stamped) error {
	return w.tx.TransmitFrame(ctx, s.Frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// DumpWriter writes candump log lines, "(time) iface ID#DATA".
type DumpWriter struct {
	w     io.Writer
	iface string
}

func NewDumpWriter(w io.Writer, iface string) *DumpWriter {
	return &DumpWriter{w: w, iface: iface}
}

func (d *DumpWriter) WriteFrame(ctx context.Context, s Stamped) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(d.w, "(%.6f) %s %s\n", s.Time, d.iface, s.Frame.String())
	return err
}

func (d *DumpWriter) Close() error { return nil }

// WriteAll sends frames in order, stopping at the first error.
func WriteAll(ctx context.Context, w Writer, frames []Stamped) error {
	for _, s := range frames {
		if err := w.WriteFrame(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// ParseFrame reads the ID#DATA part of a candump line.
func ParseFrame(s string) (can.Frame, error) {
	var f can.Frame
	if err := f.UnmarshalString(s); err != nil {
		return can.Frame{}, err
	}
	return f, nil
}

package controller

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Listen opens the unix socket host processes connect back to. A stale
// socket file left by a crashed controller is replaced.
func (c *Controller) Listen() error {
	if c.listener != nil {
		return ErrBusy
	}
	if err := os.Remove(c.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", c.socket, err)
	}
	ln, err := net.Listen("unix", c.socket)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.socket, err)
	}
	if err := os.Chmod(c.socket, 0o700); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod %s: %w", c.socket, err)
	}
	c.listener = ln
	c.logger.Info("listening", "socket", c.socket)
	go c.accept(ln)
	return nil
}

func (c *Controller) accept(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Error("accept", "err", err)
			c.Post(c.Close)
			return
		}
		go func() {
			tty, err := c.peerTTY(conn)
			c.Post(func() {
				if err != nil {
					c.logger.Warn("identify host process", "err", err)
					_ = conn.Close()
					return
				}
				c.attach(conn, tty)
			})
		}()
	}
}

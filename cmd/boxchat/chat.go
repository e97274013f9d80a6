package main

import (
	"context"
	"fmt"

	"github.com/boxchat/boxchat-go/cmd/boxchat/chat"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

// runChat attaches a readline prompt to conn and chats until either side
// leaves or ctx ends.
func (rt *runtime) runChat(ctx context.Context, conn *transport.Connection, encrypt bool) error {
	term, err := chat.NewTerminal(fmt.Sprintf("%s> ", rt.cfg.Name))
	if err != nil {
		conn.Close()
		return err
	}
	defer term.Close()

	session := chat.NewSession(conn, term, term.Stdout(), chat.Options{
		Name:    rt.cfg.Name,
		Encrypt: encrypt,
		Logger:  rt.logger,
	})
	err = session.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

package wa

import (
	"context"
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

// Handler turns one inbound message into one reply. An empty reply means
// nothing is sent.
type Handler interface {
	HandleMessage(ctx context.Context, chatJID, pushName, body string) string
}

// Client is the WhatsApp transport. It owns the whatsmeow session, pairs via
// a QR code on first run, and forwards direct messages to the handler.
type Client struct {
	wm      *whatsmeow.Client
	handler Handler
	logger  *log.Logger
}

func NewClient(sessionDBPath string, handler Handler, logger *log.Logger) (*Client, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", sessionDBPath)
	container, err := sqlstore.New("sqlite", dsn, waLog.Stdout("Session", "WARN", false))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	device, err := container.GetFirstDevice()
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	client := &Client{
		wm:      whatsmeow.NewClient(device, waLog.Stdout("Client", "WARN", false)),
		handler: handler,
		logger:  logger.WithComponent(log.ComponentTransport),
	}
	client.wm.AddEventHandler(client.handleEvent)
	return client, nil
}

// Run connects and blocks until the context is cancelled. On first run the
// pairing QR code is rendered to stdout.
func (c *Client) Run(ctx context.Context) error {
	if c.wm.Store.ID == nil {
		qrChan, err := c.wm.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get QR channel: %w", err)
		}
		if err := c.wm.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				c.logger.InfoContext(ctx, "Scan the QR code to pair")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			case "success":
				c.logger.InfoContext(ctx, "Pairing successful")
			default:
				c.logger.WarnContext(ctx, "Pairing event", "event", evt.Event)
			}
		}
	} else {
		if err := c.wm.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	c.logger.InfoContext(ctx, "WhatsApp transport connected")
	<-ctx.Done()
	c.wm.Disconnect()
	c.logger.Info("WhatsApp transport disconnected")
	return nil
}

func (c *Client) handleEvent(evt interface{}) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}
	if msg.Info.IsFromMe || msg.Info.IsGroup {
		return
	}
	// Only direct personal chats, no status broadcasts or newsletters.
	if msg.Info.Chat.Server != types.DefaultUserServer {
		return
	}

	body := extractText(msg)
	if body == "" {
		return
	}

	ctx := context.Background()
	chatJID := msg.Info.Chat.String()
	reply := c.handler.HandleMessage(ctx, chatJID, msg.Info.PushName, body)
	if reply == "" {
		return
	}

	_, err := c.wm.SendMessage(ctx, msg.Info.Chat, &waProto.Message{
		Conversation: proto.String(reply),
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Reply send failed",
			log.FieldChatJID, chatJID,
			log.FieldError, err)
	}
}

func extractText(msg *events.Message) string {
	if text := msg.Message.GetConversation(); text != "" {
		return text
	}
	return msg.Message.GetExtendedTextMessage().GetText()
}

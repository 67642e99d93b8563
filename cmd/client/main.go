package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

// Minimal interactive client: log in, join a room, then type to chat.
// "/history" renders the room's durable history, "/quit" leaves.
func main() {
	server := flag.String("server", "localhost:8080", "host:port of the chat server")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	room := flag.Int("room", 1, "room id to join")
	register := flag.Bool("register", false, "create the account first")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	token, err := authenticate(*server, *email, *password, *register)
	if err != nil {
		log.Fatal("Authentication failed: ", err)
	}

	wsURL := url.URL{Scheme: "ws", Host: *server, Path: "/api/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatal("Connection failed: ", err)
	}
	defer conn.Close()

	send(conn, "joinRoom", map[string]any{"roomId": *room})
	fmt.Println(color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" joined room %d as %s ", *room, *email)))

	go readEvents(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			send(conn, "leaveRoom", map[string]any{"roomId": *room})
			return
		case line == "/history":
			if err := printHistory(*server, token, *room); err != nil {
				color.Red.Println("history failed: ", err)
			}
		default:
			send(conn, "sendMessage", map[string]any{"roomId": *room, "content": line})
		}
	}
}

func send(conn *websocket.Conn, event string, payload map[string]any) {
	data, _ := json.Marshal(payload)
	frame, _ := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(data)})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Fatal("Write failed: ", err)
	}
}

func readEvents(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			color.Red.Println("connection closed: ", err)
			os.Exit(1)
		}

		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "messageReceived":
			var msg struct {
				UserID    string `json:"userId"`
				Content   string `json:"content"`
				Timestamp string `json:"timestamp"`
			}
			_ = json.Unmarshal(frame.Data, &msg)
			fmt.Printf("%s %s\n", color.Cyan.Render("["+msg.UserID+"]"), msg.Content)
		case "userJoined":
			var evt struct {
				UserID string `json:"userId"`
			}
			_ = json.Unmarshal(frame.Data, &evt)
			color.Green.Println("→ " + evt.UserID + " joined")
		case "userLeft":
			var evt struct {
				UserID string `json:"userId"`
			}
			_ = json.Unmarshal(frame.Data, &evt)
			color.Yellow.Println("← " + evt.UserID + " left")
		case "error":
			var evt struct {
				Op     string `json:"op"`
				Reason string `json:"reason"`
			}
			_ = json.Unmarshal(frame.Data, &evt)
			color.Red.Printf("✗ %s: %s\n", evt.Op, evt.Reason)
		}
	}
}

func authenticate(server, email, password string, register bool) (string, error) {
	endpoint := "/api/auth/login"
	if register {
		endpoint = "/api/auth/register"
	}

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post("http://"+server+endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("server refused: %s", out.Error)
	}
	return out.Token, nil
}

func printHistory(server, token string, room int) error {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("http://%s/api/rooms/%d/messages", server, room), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		Messages []struct {
			UserID    string `json:"userId"`
			Content   string `json:"content"`
			Timestamp string `json:"timestamp"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "User", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	// Newest first from the API; render oldest first for reading order.
	for i := len(out.Messages) - 1; i >= 0; i-- {
		msg := out.Messages[i]
		table.Append([]string{msg.Timestamp, msg.UserID, msg.Content})
	}
	table.Render()
	return nil
}

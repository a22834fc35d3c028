// pagesim simulates a dApp page talking to the walletguard bridge.
// It dials the WebSocket endpoint, sends request envelopes the way the
// extension content script would, and prints every response and event.
// Useful for exercising the approval flow end to end: run `walletguard
// serve`, start pagesim, then approve or reject from another terminal.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

var (
	addr      = flag.String("addr", "127.0.0.1:8755", "bridge address")
	origin    = flag.String("origin", "https://app.example", "page origin to claim")
	chainKind = flag.String("chain", "evm", "chain kind (evm or ledger)")
	method    = flag.String("method", "eth_requestAccounts", "method to request")
	params    = flag.String("params", "", "JSON params array")
	tabRef    = flag.String("tab", "tab-sim", "tab reference")
)

func main() {
	flag.Parse()

	kind, ok := model.ParseChainKind(*chainKind)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown chain kind %q\n", *chainKind)
		os.Exit(1)
	}

	header := http.Header{"Origin": []string{*origin}}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+*addr+"/", header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Fprintf(os.Stderr, "connected to %s as %s\n", *addr, *origin)

	var rawParams json.RawMessage
	if *params != "" {
		rawParams = json.RawMessage(*params)
	}
	payload, err := json.Marshal(model.RequestPayload{
		Method: *method,
		Params: rawParams,
		TabRef: *tabRef,
		Title:  "pagesim",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad params: %v\n", err)
		os.Exit(1)
	}

	env := model.Envelope{
		ID:        model.NewID("msg"),
		Source:    model.SourcePage,
		Kind:      model.MsgRequest,
		ChainKind: kind,
		Payload:   payload,
		Origin:    *origin,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(env); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "sent %s %s, waiting for responses (ctrl-c to quit)\n\n", *method, env.ID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.Close()
	}()

	for {
		var in model.Envelope
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		out, _ := json.MarshalIndent(in, "", "  ")
		fmt.Printf("[%s/%s]\n%s\n\n", in.Source, in.Kind, out)
	}
}

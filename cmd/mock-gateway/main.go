// Command mock-gateway sends a signed test event to a running webhook
// endpoint. Development tool for exercising the full verification path
// without a real gateway integration.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/venturelink/payments-service/internal/signature"
)

func main() {
	var (
		url       = flag.String("url", "http://localhost:8080/api/v1/webhooks/gateway", "webhook endpoint")
		secret    = flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "shared webhook secret")
		event     = flag.String("event", "payment.success", "gateway event type")
		reference = flag.String("reference", "", "payment reference (required)")
		txnID     = flag.String("txn", "txn_mock_1", "gateway transaction id")
		amount    = flag.String("amount", "5000.00", "amount")
		currency  = flag.String("currency", "NGN", "currency")
	)
	flag.Parse()

	if *reference == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: mock-gateway -reference INV-001 [-secret ...]")
		os.Exit(2)
	}

	now := time.Now().UTC()
	body, err := json.Marshal(map[string]any{
		"event":     *event,
		"createdAt": now.Format(time.RFC3339),
		"data": map[string]any{
			"id":               *txnID,
			"reference":        *reference,
			"amount":           *amount,
			"currency":         *currency,
			"status":           "success",
			"gateway_response": "Approved (mock)",
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal event:", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "build request:", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Signature", signature.Sign(body, *secret))
	req.Header.Set("X-Gateway-Timestamp", now.Format(time.RFC3339))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "send webhook:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, respBody)
}

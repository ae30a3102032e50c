package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"lightning-mint/internal/config"
)

// Demo buyer: plays a plausible game session, completes it, creates an
// invoice for the earned tier and polls until the invoice settles. Useful
// against a dev stack with mock Lightning and RGB daemons.
func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal(err)
	}
	client := &http.Client{Timeout: 10 * time.Second}

	var start struct {
		SessionID string `json:"session_id"`
		Seed      int64  `json:"seed"`
	}
	if err := postJSON(client, cfg.BaseURL+"/api/game/start", map[string]any{}, &start); err != nil {
		log.Fatal(err)
	}
	log.Printf("session %s started (seed %d)", start.SessionID, start.Seed)

	rnd := rand.New(rand.NewSource(start.Seed))
	score := int64(0)
	for i := 0; i < 8; i++ {
		time.Sleep(4 * time.Second)
		score += int64(rnd.Intn(5) + 1)
		body := map[string]any{
			"session_id": start.SessionID,
			"score":      score,
			"timestamp":  time.Now().UnixMilli(),
		}
		if err := postJSON(client, cfg.BaseURL+"/api/game/checkpoint", body, nil); err != nil {
			log.Fatal(err)
		}
		log.Printf("checkpoint %d: score %d", i+1, score)
	}

	var complete struct {
		Tier string `json:"tier"`
	}
	err = postJSON(client, cfg.BaseURL+"/api/game/complete", map[string]any{
		"session_id":  start.SessionID,
		"final_score": score,
	}, &complete)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("session complete: score %d, tier %q", score, complete.Tier)
	if complete.Tier == "" || complete.Tier == "none" {
		log.Fatal("score too low for any tier; no purchase possible")
	}

	var created struct {
		InvoiceID      string `json:"invoice_id"`
		PaymentRequest string `json:"payment_request"`
		AmountSats     int64  `json:"amount_sats"`
	}
	err = postJSON(client, cfg.BaseURL+"/api/purchase/invoice", map[string]any{
		"recipient":  cfg.Recipient,
		"unit_count": cfg.UnitCount,
		"session_id": start.SessionID,
	}, &created)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("invoice %s: pay %d sats via %s", created.InvoiceID, created.AmountSats, created.PaymentRequest)

	for {
		time.Sleep(3 * time.Second)
		var status struct {
			Status string `json:"status"`
		}
		if err := getJSON(client, cfg.BaseURL+"/api/purchase/invoice/"+created.InvoiceID+"/status", &status); err != nil {
			log.Fatal(err)
		}
		log.Printf("invoice status: %s", status.Status)
		switch status.Status {
		case "delivered":
			log.Printf("units delivered; fetch artifact at /api/purchase/invoice/%s/artifact", created.InvoiceID)
			return
		case "expired", "amount_mismatch", "distribution_failed":
			log.Fatalf("invoice ended in %s", status.Status)
		}
	}
}

func postJSON(client *http.Client, url string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("POST %s: status %d (%s)", url, resp.StatusCode, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

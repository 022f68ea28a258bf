package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

var (
	targetURL      string
	totalCustomers int
	initialDeposit string
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&totalCustomers, "customers", 1000, "Number of customers to create (one Checking account each)")
	flag.StringVar(&initialDeposit, "deposit", "100.00", "Initial deposit per account")
}

type idResponse struct {
	CustomerID int64 `json:"customer_id"`
	AccountID  int64 `json:"account_id"`
}

func main() {
	flag.Parse()
	client := &http.Client{Timeout: 5 * time.Second}

	log.Println("--- Seeding Ledger ---")
	log.Printf("Creating %d customers with one account each...", totalCustomers)

	for i := 1; i <= totalCustomers; i++ {
		var cust idResponse
		err := postJSON(client, targetURL+"/api/v1/customers", map[string]string{
			"name":    fmt.Sprintf("Customer %04d", i),
			"address": fmt.Sprintf("%d Demo Street", i),
			"phone":   fmt.Sprintf("555-%04d", i),
			"email":   fmt.Sprintf("customer%04d@example.com", i),
		}, &cust)
		if err != nil {
			log.Fatalf("Customer creation failed: %v", err)
		}

		var acct idResponse
		err = postJSON(client, targetURL+"/api/v1/accounts", map[string]interface{}{
			"customer_id":  cust.CustomerID,
			"account_type": "Checking",
		}, &acct)
		if err != nil {
			log.Fatalf("Account creation failed: %v", err)
		}

		err = postJSON(client, fmt.Sprintf("%s/api/v1/accounts/%d/deposit", targetURL, acct.AccountID),
			map[string]string{"amount": initialDeposit}, nil)
		if err != nil {
			log.Fatalf("Initial deposit failed: %v", err)
		}
	}

	log.Printf("Successfully seeded %d customers and accounts.", totalCustomers)
}

func postJSON(client *http.Client, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

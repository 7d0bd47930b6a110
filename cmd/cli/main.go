package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/yourorg/jobboard/internal/security/auth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "revalidate":
		revalidateTag(args)
	case "listing":
		handleListing(args)
	case "hashpw":
		hashPassword(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: jobboard auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginAdmin(args[1:])
	case "logout":
		logoutAdmin()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleListing(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: jobboard listing <list|create|status>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listListings(args[1:])
	case "create":
		createListing(args[1:])
	case "status":
		setListingStatus(args[1:])
	default:
		fmt.Printf("unknown listing command: %s\n", subCmd)
	}
}

// Auth commands
func loginAdmin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/api/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutAdmin() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Revalidate command
func revalidateTag(args []string) {
	fs := flag.NewFlagSet("revalidate", flag.ExitOnError)
	kind := fs.String("kind", "", "entity kind (users, organizations, jobListings, ...)")
	id := fs.String("id", "", "entity id (optional)")
	parentKind := fs.String("parent-kind", "", "parent entity kind (optional)")
	parentID := fs.String("parent-id", "", "parent entity id (optional)")
	immediate := fs.Bool("immediate", false, "push invalidation to subscribed caches")

	fs.Parse(args)

	if *kind == "" {
		fmt.Println("Error: kind is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{"kind": *kind}
	if *id != "" {
		payload["id"] = *id
	}
	if *parentKind != "" {
		payload["parentKind"] = *parentKind
	}
	if *parentID != "" {
		payload["parentId"] = *parentID
	}
	if *immediate {
		payload["immediate"] = true
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/api/revalidate", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Revalidated: %s\n", *kind)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Revalidation failed (%d): %v\n", resp.StatusCode, result)
	}
}

// Listing commands
func listListings(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	org := fs.String("org", "", "organization ID")

	fs.Parse(args)

	if *org == "" {
		fmt.Println("Error: org is required")
		fs.PrintDefaults()
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/api/organizations/"+*org+"/listings", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var listings []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&listings)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPOSTED")
	for _, l := range listings {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", l["id"], l["title"], l["status"], l["postedAt"])
	}
	w.Flush()
}

func createListing(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	org := fs.String("org", "", "organization ID")
	title := fs.String("title", "", "listing title")
	description := fs.String("description", "", "listing description")

	fs.Parse(args)

	if *org == "" || *title == "" {
		fmt.Println("Error: org and title are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"title": *title, "description": *description}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/api/organizations/"+*org+"/listings", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Listing created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed (%d): %v\n", resp.StatusCode, result)
	}
}

func setListingStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "listing ID")
	status := fs.String("status", "", "new status (draft, published, delisted)")

	fs.Parse(args)

	if *id == "" || *status == "" {
		fmt.Println("Error: id and status are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"status": *status}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PATCH", getAPIURL()+"/api/listings/"+*id+"/status", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ Listing %s -> %s\n", *id, *status)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Status change failed (%d): %v\n", resp.StatusCode, result)
	}
}

// hashPassword prints a bcrypt hash suitable for ADMIN_PASSWORD_HASH
func hashPassword(args []string) {
	fs := flag.NewFlagSet("hashpw", flag.ExitOnError)
	password := fs.String("password", "", "password to hash")

	fs.Parse(args)

	if *password == "" {
		fmt.Println("Error: password is required")
		fs.PrintDefaults()
		return
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(hash)
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("JOBBOARD_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.jobboard/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.jobboard", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`JobBoard CLI

Usage:
  jobboard <command> [options]

Commands:
  auth        Admin authentication (login, logout, who)
  revalidate  Invalidate cache tags by entity kind and scope - admin access required
  listing     Job listing operations (list, create, status) - writes need admin access
  hashpw      Print a bcrypt hash for ADMIN_PASSWORD_HASH
  help        Show this help message

Environment Variables:
  JOBBOARD_API    API base URL (default: http://localhost:8080)

Examples:
  jobboard auth login -email admin@example.com -password pass
  jobboard revalidate -kind jobListings -parent-kind organizations -parent-id org_1
  jobboard listing list -org org_1
  jobboard listing status -id 7f9c... -status published
`)
}

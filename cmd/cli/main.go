// Command cli is a small terminal client for the records API. The session
// token is persisted under the user's home directory, so one login carries
// across invocations until the token expires.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"siakad/records/internal/client"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	baseURL := os.Getenv("RECORDS_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	tokenPath := os.Getenv("RECORDS_TOKEN_FILE")
	if tokenPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatal("resolve home dir: %v", err)
		}
		tokenPath = filepath.Join(home, ".siakad-records", "token")
	}

	session := client.NewSession(client.New(baseURL), tokenPath)
	ctx := context.Background()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "register":
		err = runRegister(ctx, session, args)
	case "login":
		err = runLogin(ctx, session, args)
	case "logout":
		err = session.Logout()
	case "me":
		err = runMe(ctx, session)
	case "list":
		err = runList(ctx, session, args)
	case "get":
		err = runGet(ctx, session, args)
	case "create":
		err = runCreate(ctx, session, args)
	case "update":
		err = runUpdate(ctx, session, args)
	case "delete":
		err = runDelete(ctx, session, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cli <command> [flags]

commands:
  register  -email -password -name [-role]
  login     -email -password
  logout
  me
  list      [-search] [-program-studi] [-angkatan]
  get       <student-id>
  create    -nim -nama -email -program-studi -angkatan
  update    <student-id> [-nama] [-email] [-program-studi] [-angkatan]
  delete    <student-id>`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRegister(ctx context.Context, session *client.Session, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "", "account role (user or admin, default user)")
	fs.Parse(args)

	account, err := session.Client().Register(ctx, *email, *password, *name, *role)
	if err != nil {
		return err
	}
	return printJSON(account)
}

func runLogin(ctx context.Context, session *client.Session, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	account, err := session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "logged in as %s (%s)\n", account.Email, account.Role)
	return nil
}

func runMe(ctx context.Context, session *client.Session) error {
	if err := session.Restore(ctx); err != nil {
		return err
	}
	return printJSON(session.Account())
}

func runList(ctx context.Context, session *client.Session, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	search := fs.String("search", "", "match against nama, nim or email")
	programStudi := fs.String("program-studi", "", "exact program filter")
	angkatan := fs.Int("angkatan", 0, "cohort year filter")
	fs.Parse(args)

	if err := session.Restore(ctx); err != nil {
		return err
	}
	students, err := session.Client().ListStudents(ctx, client.ListFilter{
		Search:       *search,
		ProgramStudi: *programStudi,
		Angkatan:     *angkatan,
	})
	if err != nil {
		return err
	}
	return printJSON(students)
}

func runGet(ctx context.Context, session *client.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: get <student-id>")
	}
	if err := session.Restore(ctx); err != nil {
		return err
	}
	student, err := session.Client().GetStudent(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(student)
}

func runCreate(ctx context.Context, session *client.Session, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	nim := fs.String("nim", "", "student number")
	nama := fs.String("nama", "", "student name")
	email := fs.String("email", "", "student email")
	programStudi := fs.String("program-studi", "", "study program")
	angkatan := fs.Int("angkatan", 0, "cohort year")
	fs.Parse(args)

	if err := session.Restore(ctx); err != nil {
		return err
	}
	student, err := session.Client().CreateStudent(ctx, client.StudentInput{
		NIM:          *nim,
		Nama:         *nama,
		Email:        *email,
		ProgramStudi: *programStudi,
		Angkatan:     *angkatan,
	})
	if err != nil {
		return err
	}
	return printJSON(student)
}

func runUpdate(ctx context.Context, session *client.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: update <student-id> [flags]")
	}
	id := args[0]

	fs := flag.NewFlagSet("update", flag.ExitOnError)
	nama := fs.String("nama", "", "new student name")
	email := fs.String("email", "", "new student email")
	programStudi := fs.String("program-studi", "", "new study program")
	angkatan := fs.Int("angkatan", 0, "new cohort year")
	fs.Parse(args[1:])

	var patch client.StudentPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nama":
			patch.Nama = nama
		case "email":
			patch.Email = email
		case "program-studi":
			patch.ProgramStudi = programStudi
		case "angkatan":
			patch.Angkatan = angkatan
		}
	})

	if err := session.Restore(ctx); err != nil {
		return err
	}
	student, err := session.Client().UpdateStudent(ctx, id, patch)
	if err != nil {
		return err
	}
	return printJSON(student)
}

func runDelete(ctx context.Context, session *client.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: delete <student-id>")
	}
	if err := session.Restore(ctx); err != nil {
		return err
	}
	if err := session.Client().DeleteStudent(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "deleted")
	return nil
}

package setup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const (
	DefaultPostgresUser   = "plantation"
	DefaultPostgresDB     = "plantation_tracker"
	PostgresContainerName = "plantation-postgres"
)

var selectedPostgresPort = "5432" // set by findAvailablePostgresPort()

// getPostgresPassword returns the PostgreSQL password from environment or a
// generated one for development auto-setup. In production, POSTGRES_PASSWORD
// or DATABASE_URL should always be set.
func getPostgresPassword() string {
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		return pw
	}
	return "plantation_local_dev_" + fmt.Sprintf("%d", time.Now().Unix()%10000)
}

// CheckAndSetupDatabase ensures a PostgreSQL database is available.
// It tries in order: existing DATABASE_URL -> Docker -> error.
func CheckAndSetupDatabase() error {
	log.Println("Checking database configuration...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		if isDatabaseAccessible(databaseURL) {
			log.Println("✓ Database already configured and accessible")
			return nil
		}
		log.Println("DATABASE_URL set but database not accessible, will try to setup...")
	}

	if !isDockerInstalled() {
		return fmt.Errorf(`Docker is required for automatic database setup.

Please install Docker:
  curl -fsSL https://get.docker.com | sh

Or manually configure DATABASE_URL in .env file.`)
	}

	log.Println("✓ Docker is installed")

	if isPostgresContainerRunning() {
		if port, ok := containerHostPort(); ok {
			selectedPostgresPort = port
		}
		log.Printf("✓ PostgreSQL container already running on port %s", selectedPostgresPort)
		return ensureDatabaseURLInEnv()
	}

	log.Println("Starting PostgreSQL container...")
	if err := startPostgresContainer(); err != nil {
		return fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}
	log.Println("✓ PostgreSQL container started")

	log.Println("Waiting for PostgreSQL to be ready...")
	if err := waitForPostgres(); err != nil {
		return fmt.Errorf("PostgreSQL failed to start: %w", err)
	}
	log.Println("✓ PostgreSQL is ready")

	if err := ensureDatabaseURLInEnv(); err != nil {
		return fmt.Errorf("failed to update .env file: %w", err)
	}

	log.Println("✓ Database setup complete")
	return nil
}

func isDockerInstalled() bool {
	cmd := exec.Command("docker", "--version")
	return cmd.Run() == nil
}

func isPostgresContainerRunning() bool {
	cmd := exec.Command("docker", "ps", "--filter", fmt.Sprintf("name=%s", PostgresContainerName), "--format", "{{.Names}}")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == PostgresContainerName
}

// containerHostPort reads the host port mapped to the container's 5432.
func containerHostPort() (string, bool) {
	cmd := exec.Command("docker", "port", PostgresContainerName, "5432")
	output, err := cmd.Output()
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.TrimSpace(string(output)), ":")
	if len(parts) != 2 {
		return "", false
	}
	return parts[1], true
}

func startPostgresContainer() error {
	// Check if container exists but is stopped
	cmd := exec.Command("docker", "ps", "-a", "--filter", fmt.Sprintf("name=%s", PostgresContainerName), "--format", "{{.Names}}")
	output, err := cmd.Output()
	if err == nil && strings.TrimSpace(string(output)) == PostgresContainerName {
		if port, ok := containerHostPort(); ok {
			selectedPostgresPort = port
			log.Printf("Using existing container port: %s", selectedPostgresPort)
		}

		log.Println("Starting existing PostgreSQL container...")
		cmd = exec.Command("docker", "start", PostgresContainerName)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("failed to start existing container: %w", err)
		}
		return nil
	}

	selectedPostgresPort = findAvailablePostgresPort()

	args := []string{
		"run",
		"-d",
		"--name", PostgresContainerName,
		"-e", fmt.Sprintf("POSTGRES_USER=%s", DefaultPostgresUser),
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", getPostgresPassword()),
		"-e", fmt.Sprintf("POSTGRES_DB=%s", DefaultPostgresDB),
		"-p", fmt.Sprintf("%s:5432", selectedPostgresPort),
		"--restart", "unless-stopped",
		"postgres:15-alpine",
	}

	log.Printf("Starting PostgreSQL container on port %s...", selectedPostgresPort)
	cmd = exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker run failed: %w\nOutput: %s", err, string(out))
	}

	return nil
}

func waitForPostgres() error {
	maxAttempts := 30
	for i := 0; i < maxAttempts; i++ {
		cmd := exec.Command("docker", "exec", PostgresContainerName, "pg_isready", "-U", DefaultPostgresUser)
		if err := cmd.Run(); err == nil {
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("PostgreSQL did not become ready after %d seconds", maxAttempts)
}

func isDatabaseAccessible(databaseURL string) bool {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return false
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.PingContext(ctx) == nil
}

func ensureDatabaseURLInEnv() error {
	databaseURL := fmt.Sprintf(
		"postgresql://%s:%s@localhost:%s/%s?sslmode=disable",
		DefaultPostgresUser,
		getPostgresPassword(),
		selectedPostgresPort,
		DefaultPostgresDB,
	)

	os.Setenv("DATABASE_URL", databaseURL)

	envPath := ".env"
	content := ""
	if data, err := os.ReadFile(envPath); err == nil {
		content = string(data)
	}

	if strings.Contains(content, "DATABASE_URL=") {
		// Already exists, don't modify
		return nil
	}

	f, err := os.OpenFile(envPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		f.WriteString("\n")
	}

	f.WriteString("# Auto-generated by Plantation Tracker\n")
	f.WriteString(fmt.Sprintf("DATABASE_URL=%s\n", databaseURL))

	log.Printf("✓ DATABASE_URL added to .env file")
	return nil
}

func isPortAvailable(port string) bool {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// findAvailablePostgresPort finds an available host port for PostgreSQL,
// preferring the standard one.
func findAvailablePostgresPort() string {
	if isPortAvailable("5432") {
		log.Println("✓ Port 5432 available")
		return "5432"
	}

	log.Println("Port 5432 in use, trying alternatives...")

	for port := 5433; port <= 5450; port++ {
		portStr := fmt.Sprintf("%d", port)
		if isPortAvailable(portStr) {
			log.Printf("✓ Found available port: %s", portStr)
			return portStr
		}
	}

	log.Println("⚠️  No available ports found between 5432-5450, will attempt 5432")
	return "5432"
}

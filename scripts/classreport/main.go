// Command classreport prints a class result summary straight from the
// database, for operators who need a quick look without going through the
// API. Connection settings come from the same .env the server reads.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"
)

type row struct {
	StudentID  string
	TotalScore float64
	Average    float64
	Remark     string
	Subjects   int
}

func main() {
	var (
		classroomID string
		session     string
		term        int
	)
	flag.StringVar(&classroomID, "classroom", "", "classroom id (required)")
	flag.StringVar(&session, "session", "", "academic session, e.g. 2025/2026 (required)")
	flag.IntVar(&term, "term", 1, "term (1-3)")
	flag.Parse()

	if classroomID == "" || session == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"), envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"), envOr("DB_PASSWORD", "postgres"),
		envOr("DB_NAME", "klasnova"), envOr("DB_SSL_MODE", "disable"))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	const query = `SELECT r.student_id, r.total_score, r.average, r.remark,
                (SELECT COUNT(*) FROM result_items i WHERE i.result_id = r.id) AS subjects
        FROM results r
        WHERE r.classroom_id = $1 AND r.academic_session = $2 AND r.term = $3
        ORDER BY r.average DESC, r.student_id ASC`

	rows, err := db.Query(query, classroomID, session, term)
	if err != nil {
		log.Fatalf("query results: %v", err)
	}
	defer rows.Close()

	var report []row
	var classTotal float64
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.StudentID, &r.TotalScore, &r.Average, &r.Remark, &r.Subjects); err != nil {
			log.Fatalf("scan row: %v", err)
		}
		classTotal += r.Average
		report = append(report, r)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("read rows: %v", err)
	}

	if len(report) == 0 {
		color.Yellow("no results for classroom %s, %s term %d", classroomID, session, term)
		return
	}

	color.Cyan("Class results — %s, %s term %d", classroomID, session, term)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Student", "Subjects", "Total", "Average", "Remark"})
	table.SetBorder(false)

	rank := 0
	var prevAvg float64
	for i, r := range report {
		// Competition ranking: equal averages share a rank.
		if i == 0 || r.Average != prevAvg {
			rank = i + 1
		}
		prevAvg = r.Average
		table.Append([]string{
			fmt.Sprintf("%d", rank),
			r.StudentID,
			fmt.Sprintf("%d", r.Subjects),
			fmt.Sprintf("%.2f", r.TotalScore),
			fmt.Sprintf("%.2f", r.Average),
			r.Remark,
		})
	}
	table.Render()

	classAvg := classTotal / float64(len(report))
	if classAvg >= 60 {
		color.Green("students: %d, class average: %.2f", len(report), classAvg)
	} else {
		color.Red("students: %d, class average: %.2f", len(report), classAvg)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

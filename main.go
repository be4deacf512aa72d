package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	lookbackDays    int
	postLimit       int
	commentsPerPost int
	saveRaw         bool
	loadFromFile    string
	outputPrefix    string
)

var rootCmd = &cobra.Command{
	Use:   "reddit-analysis",
	Short: "Analyze recruitment problems discussed on r/recruitinghell",
	Long: `Fetches posts and comments from r/recruitinghell and identifies the most
common recruitment problems using Claude.

Examples:
  # Fetch last 7 days of posts
  reddit-analysis --lookback 7

  # Fetch last 30 days, limit to 100 posts, save raw data
  reddit-analysis --lookback 30 --post-limit 100 --save-raw

  # Analyze from previously saved data
  reddit-analysis --load-from-file reddit_data_2024-01-15_10-30.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.Flags().IntVarP(&lookbackDays, "lookback", "l", 30, "Number of days to look back")
	rootCmd.Flags().IntVarP(&postLimit, "post-limit", "p", 0, "Maximum number of posts to fetch (0 = all)")
	rootCmd.Flags().IntVarP(&commentsPerPost, "comments-per-post", "c", 50, "Maximum comments per post")
	rootCmd.Flags().BoolVarP(&saveRaw, "save-raw", "s", false, "Save raw Reddit data to a JSON file")
	rootCmd.Flags().StringVarP(&loadFromFile, "load-from-file", "f", "", "Load Reddit data from an existing JSON file instead of fetching")
	rootCmd.Flags().StringVarP(&outputPrefix, "output", "o", "recruitment_problems_report", "Output filename prefix")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() {
	fmt.Println("🔍 Reddit Recruitment Hell Analyzer")
	fmt.Println(strings.Repeat("=", 50))

	// A missing .env is fine; credentials may come from the environment.
	_ = godotenv.Load()

	creds := LoadCredentials()
	if missing := creds.Missing(); len(missing) > 0 {
		fmt.Println("Error: Missing required environment variables:")
		for _, name := range missing {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("\nPlease copy .env.example to .env and fill in your API credentials.")
		os.Exit(1)
	}

	settings, err := LoadSettings()
	if err != nil {
		log.Fatalf("Loading settings: %v", err)
	}

	var posts []Post
	if loadFromFile != "" {
		fmt.Printf("Loading Reddit data from %s...\n", loadFromFile)
		posts, err = LoadRawData(loadFromFile)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d posts from file\n", len(posts))
	} else {
		fmt.Printf("Fetching posts from last %d days...\n", lookbackDays)
		client := NewRedditClient(creds, settings.Subreddit)

		posts, err = client.FetchAllContent(lookbackDays, postLimit, commentsPerPost)
		if err != nil {
			fmt.Printf("Error fetching Reddit data: %v\n", err)
			fmt.Println("Make sure your Reddit API credentials are correct in .env")
			os.Exit(1)
		}

		if saveRaw && len(posts) > 0 {
			filename, err := SaveRawData(posts, ".")
			if err != nil {
				log.Fatalf("Saving raw data: %v", err)
			}
			fmt.Printf("Raw Reddit data saved to %s\n", filename)
		}
	}

	if len(posts) == 0 {
		fmt.Println("No posts found for the specified period.")
		return
	}

	printDataSummary(posts)

	fmt.Println("\n🤖 Analyzing recruitment problems with Claude...")
	analyzer := NewProblemAnalyzer(creds.AnthropicAPIKey, settings)
	analysis := analyzer.AnalyzeRecruitmentProblems(posts)

	outputPath := outputPrefix + ".json"
	if err := WriteReport(analysis, outputPath); err != nil {
		fmt.Printf("Error writing report: %v\n", err)
		os.Exit(1)
	}

	printTopProblems(analysis)
	fmt.Printf("\n✅ Analysis complete! Check %s for full results.\n", outputPath)
}

// printDataSummary prints post/comment counts and the covered date range.
func printDataSummary(posts []Post) {
	totalComments := 0
	oldest, newest := posts[0].CreatedUTC, posts[0].CreatedUTC
	for _, post := range posts {
		totalComments += len(post.Comments)
		if post.CreatedUTC < oldest {
			oldest = post.CreatedUTC
		}
		if post.CreatedUTC > newest {
			newest = post.CreatedUTC
		}
	}

	fmt.Println("\n📊 Data Summary:")
	fmt.Printf("  Total posts: %d\n", len(posts))
	fmt.Printf("  Total comments: %d\n", totalComments)
	fmt.Printf("  Date range: %s to %s\n",
		time.Unix(int64(oldest), 0).UTC().Format("2006-01-02"),
		time.Unix(int64(newest), 0).UTC().Format("2006-01-02"))
}

// printTopProblems prints up to five problem titles from the analysis. The
// analysis shape is model-controlled, so every read is best-effort.
func printTopProblems(analysis Analysis) {
	topProblems, ok := analysis["top_problems"].([]any)
	if !ok || len(topProblems) == 0 {
		return
	}

	fmt.Println("\n🎯 Top Recruitment Problems Identified:")
	for i, entry := range topProblems {
		if i >= 5 {
			break
		}
		problem, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		title, _ := problem["title"].(string)
		if title == "" {
			title = "Unknown"
		}
		description, _ := problem["description"].(string)

		fmt.Printf("\n%d. %s\n", i+1, title)
		fmt.Printf("   %s...\n", truncateRunes(description, 150))
	}
}

package gemini

import (
	"fmt"

	"aspirant-quiz-service/internal/domain"
	"google.golang.org/genai"
)

func quizPrompt(req domain.QuizRequest, count int) string {
	return fmt.Sprintf(`You are a quiz generator. Generate a quiz with %d multiple-choice questions on the topic: %s.
The difficulty of the quiz should be %s.
Each question should have four options, and you should indicate the index of the correct answer (0, 1, 2, or 3).
Also, provide a brief explanation for each correct answer.
Your output should be a JSON object with a "questions" array. Each object in the array must have "question", "options" (an array of four strings), "correctAnswerIndex", and "explanation" keys.`,
		count, req.Topic, req.Difficulty)
}

func currentAffairsPrompt(month string, year int) string {
	return fmt.Sprintf(`You are a world-class news analyst. Generate a summary of the top 5 most significant national and international current events for %s %d.
Focus on events that are most relevant to a general audience in India. For each event, provide a concise title, a brief summary (details), and a category.`,
		month, year)
}

func examResultPrompt(examName string) string {
	return fmt.Sprintf(`You are an expert assistant for government job aspirants in India. Find the latest and most accurate information about exam results and cutoff marks.
For the exam: %s
1. Give the most recent result status.
2. List the official category-wise cutoff marks (General, OBC, SC, ST, EWS, etc.). If marks vary by post, provide the range or a summary.
3. Provide a direct URL to the official results page or PDF. If a direct link isn't available, provide a Google search URL that will lead the user to the right page.
Provide a concise and accurate summary.`,
		examName)
}

func explanationPrompt(topic string) string {
	return fmt.Sprintf(`You are a patient tutor preparing students for competitive exams in India.
Explain the topic "%s" in clear, simple language in a few short paragraphs, covering the key facts an aspirant should remember.`,
		topic)
}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question":           {Type: genai.TypeString},
					"options":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"correctAnswerIndex": {Type: genai.TypeInteger},
					"explanation":        {Type: genai.TypeString},
				},
				Required: []string{"question", "options", "correctAnswerIndex", "explanation"},
			},
		},
	},
	Required: []string{"questions"},
}

var currentAffairsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summaries": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":    {Type: genai.TypeString},
					"details":  {Type: genai.TypeString},
					"category": {Type: genai.TypeString},
				},
				Required: []string{"title", "details", "category"},
			},
		},
	},
	Required: []string{"summaries"},
}

var examResultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"resultSummary": {Type: genai.TypeString},
		"cutoffMarks": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category": {Type: genai.TypeString},
					"marks":    {Type: genai.TypeString},
				},
				Required: []string{"category", "marks"},
			},
		},
		"officialLink": {Type: genai.TypeString},
	},
	Required: []string{"resultSummary", "cutoffMarks", "officialLink"},
}

var explanationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"explanation": {Type: genai.TypeString},
	},
	Required: []string{"explanation"},
}

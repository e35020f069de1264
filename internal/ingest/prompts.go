package ingest

const columnsSystemPrompt = "Given a job description, decide which columns a candidate-tracking " +
	"table for that role should have. Use short lowercase snake_case names. Reply with ONLY a JSON " +
	"array of column-name strings, no code fences."

const backgroundCheckSystemPrompt = "You screen resumes for obvious red flags: fabricated or " +
	"contradictory dates, impossible claims, or content that is not a resume at all. Reply with " +
	"ONLY a JSON object {\"passed\":true|false,\"reason\":\"...\"}, no code fences."

const extractInfoSystemPrompt = "Extract the requested fields from the resume text. Reply with " +
	"ONLY a JSON object mapping each requested field name to a short string value, no code fences. " +
	"Use an empty string for fields the resume does not mention."

const scoreSystemPrompt = "Score how well the resume matches the job description on a 0-100 " +
	"scale. Reply with ONLY a JSON object {\"score\":<integer>}, no code fences."

package upstream

// DefaultRealtimeURL is the speech-AI realtime endpoint.
const DefaultRealtimeURL = "wss://api.openai.com/v1/realtime?model=gpt-realtime"

// Names of the tools the session exposes.
const (
	ToolSaveContact   = "save_contact"
	ToolUpdateContact = "update_contact"
)

const systemInstructions = `You are a charismatic, playful voice assistant with genuine personality. You're collecting contact info, but you do it like you're having a fun conversation — not like you're filling out a form.

LANGUAGE: You MUST respond ONLY in English. Never respond in any other language.

YOUR PERSONALITY:
- Warm and charming, conversational and witty
- Confident but never pushy
- Keep responses SHORT (1-2 sentences max) — like actual conversation
- Use natural fillers: "umm", "uh", "hmm", "so", "well" — sprinkled in, not every sentence

YOUR MISSION (don't make it obvious):
Get: name, email, and phone number. Stay focused on this, but keep it conversational.

THE FLOW:
- Start with a varied, interesting greeting
- Get their name first. ALWAYS collect a full name (first + last); if they give only one name, ask for the last name
- Once you have the name, USE IT naturally in conversation
- Move to email, then phone — keep it flowing
- Phone numbers: accept WHATEVER they give you — any length, any format, spoken as words is fine
- When you have all 3 pieces: FIRST verbally acknowledge you're saving it, THEN call save_contact. NEVER call save_contact silently.

AFTER SAVING:
- If the user wants to correct any info, FIRST verbally acknowledge the fix, THEN call update_contact with ONLY the field(s) they want to change. NEVER call update_contact silently.

IMPORTANT TECHNICAL NOTES:
- Users may say emails without "@" (e.g., "john gmail.com") — you'll handle this automatically
- Phone numbers might be spoken as words — that's fine, you'll convert them
- When you call save_contact, make sure you have all three: name, email, phone

WHAT TO AVOID:
- Don't sound like a script or checklist; don't repeat the same pattern
- Don't be picky about phone number format or length
- Don't ask questions that don't help you get their contact info`

// GreetingInstructions drive the one-shot generation request sent right after
// the session is configured, before the user has said anything.
const GreetingInstructions = `Respond ONLY in English. Give a creative, engaging greeting that's different each time — avoid generic "Hey there" or "Hi". Be playful, warm, and interesting. Use natural speech patterns with fillers. Then smoothly ask for their name in a fresh way.`

// DefaultSessionConfig builds the configuration message sent immediately
// after the upstream connection opens: 24kHz PCM16 both directions, input
// transcription, semantic turn detection, and the contact tools.
func DefaultSessionConfig() SessionConfig {
	pcm24k := AudioFormat{Type: "audio/pcm", Rate: 24000}
	return SessionConfig{
		Type:             "realtime",
		Instructions:     systemInstructions,
		OutputModalities: []string{"audio"},
		Audio: AudioConfig{
			Input: AudioInput{
				Format:        pcm24k,
				Transcription: &TranscriptionConfig{Model: "whisper-1"},
				TurnDetection: &TurnDetection{Type: "semantic_vad"},
			},
			Output: AudioOutput{
				Format: pcm24k,
				Voice:  "marin",
			},
		},
		Tools:      []ToolDef{saveContactTool(), updateContactTool()},
		ToolChoice: "auto",
	}
}

func saveContactTool() ToolDef {
	return ToolDef{
		Type:        "function",
		Name:        ToolSaveContact,
		Description: "Save contact info to database. Call AFTER you verbally acknowledge that you are saving it. Never call this silently. Requires name, email, AND phone.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "Full name"},
				"email": map[string]any{"type": "string", "description": "Email address with @ symbol"},
				"phone": map[string]any{"type": "string", "description": "Phone number as digits only"},
			},
			"required": []string{"name", "email", "phone"},
		},
	}
}

func updateContactTool() ToolDef {
	return ToolDef{
		Type:        "function",
		Name:        ToolUpdateContact,
		Description: "Update the most recently saved contact with corrected information. Call AFTER you verbally acknowledge the correction. Never call this silently. Use when the user wants to fix their name, email, or phone.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "Updated full name (optional)"},
				"email": map[string]any{"type": "string", "description": "Updated email address (optional)"},
				"phone": map[string]any{"type": "string", "description": "Updated phone number (optional)"},
			},
		},
	}
}

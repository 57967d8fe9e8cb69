package chat

import (
	"fmt"
	"strings"
)

// PromptContext is the aggregate state embedded in the system prompt.
type PromptContext struct {
	Specializations  []string
	AppointmentCount int
	DoctorCount      int
	UserMessage      string
	ContextType      ContextType
}

const systemPromptTemplate = `You are a helpful AI assistant for a doctor appointment booking system. 
    
    Available specializations: %s
    
    Current context:
    - User has %d appointments
    - There are %d available doctors
    
    You can help users with:
    1. Finding doctors by specialization
    2. Booking appointments
    3. Checking appointment status
    4. General health information
    
    Be concise, helpful, and always ask clarifying questions when needed.
    If a user wants to book an appointment, ask for their preferred specialization, date, and any symptoms.
    
    User message: "%s"
    Context type: %s`

// BuildSystemPrompt renders the assistant's system prompt.
func BuildSystemPrompt(pc PromptContext) string {
	contextType := pc.ContextType
	if contextType == "" {
		contextType = ContextGeneral
	}
	return fmt.Sprintf(systemPromptTemplate,
		strings.Join(pc.Specializations, ", "),
		pc.AppointmentCount,
		pc.DoctorCount,
		pc.UserMessage,
		contextType,
	)
}

const (
	fallbackGreeting = "I'm here to help you with doctor appointments! "
	fallbackBooking  = "To book an appointment, I'll need to know:\n1. What type of doctor (specialization) do you need?\n2. Your preferred date\n3. Any symptoms you're experiencing"
	fallbackGeneric  = "You can ask me to help you find doctors, book appointments, or check your existing appointments. What would you like to do?"

	fallbackSpecializationLimit = 5
)

// FallbackReply is the rule-based answer used when the model is unavailable.
func FallbackReply(userMessage string, specializations []string) string {
	text := strings.ToLower(userMessage)
	switch {
	case strings.Contains(text, "book") || strings.Contains(text, "appointment"):
		return fallbackGreeting + fallbackBooking
	case strings.Contains(text, "doctor") || strings.Contains(text, "specialist"):
		listed := specializations
		if len(listed) > fallbackSpecializationLimit {
			listed = listed[:fallbackSpecializationLimit]
		}
		return fallbackGreeting + fmt.Sprintf("We have doctors in these specializations: %s. Which one interests you?", strings.Join(listed, ", "))
	default:
		return fallbackGreeting + fallbackGeneric
	}
}

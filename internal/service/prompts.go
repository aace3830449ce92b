package service

import (
	"fmt"
	"strconv"

	"github.com/kjstillabower/tour-guide-service/internal/models"
)

func formatTemp(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// suggestionPrompt asks for 5-7 attractions as a JSON "places" array, tuned to the weather.
func suggestionPrompt(city string, w models.WeatherRecord) string {
	return fmt.Sprintf(`Based on the city '%[1]s' and current weather conditions:
- Temperature: %[2]s°C
- Weather: %[3]s
- Humidity: %[4]d%%
- Wind Speed: %.2[5]f m/s

Please suggest 5-7 popular tourist places or attractions to visit in %[1]s.
For each place, provide:
1. Name of the place
2. What makes it special
3. Best time to visit (considering current weather)
4. Entry fee (if known, or "Check locally")
5. Travel tips

Format your response as a JSON object with a "places" array.

IMPORTANT: Use emojis, bullet points, and numbered lists to make the response visually organized and easy to read.
Example format for each place:
- 🏛️ **Place Name**: Brief description
  • Best time: [time info]
  • Fee: [fee info]
  • Tips: [practical tips]`,
		city, formatTemp(w.Temperature), w.Description, w.Humidity, w.WindSpeed)
}

// chatContext is the first prompt part of every chat call.
func chatContext(city string, w models.WeatherRecord) string {
	return fmt.Sprintf(`You are an expert tour guide and weather expert. You help users learn about cities,
attractions, and travel planning based on weather conditions.

Current City: %[1]s
Current Weather: %[2]s at %[3]s°C
Humidity: %[4]d%%, Wind Speed: %.2[5]f m/s

Answer user questions about:
- Places to visit in %[1]s
- Weather and how it affects activities
- Travel tips and recommendations
- Local culture and attractions
- Safety and best practices for visiting

Be conversational, helpful, and provide specific recommendations based on the weather.

FORMATTING REQUIREMENTS:
📍 Use relevant emojis (🏨 hotel, 🍽️ restaurant, 🎭 culture, 🏛️ museum, 🏖️ beach, 🥾 hiking, 🎪 entertainment, etc.)
📝 Organize responses with:
   • Numbered lists (1. Item, 2. Item) for main points
   • Bullet points (• Sub-point) for details and tips
   • **Bold text** for emphasis on important locations/times
   • *Italics* for additional context
✨ Make responses visually structured and easy to scan`,
		city, w.Description, formatTemp(w.Temperature), w.Humidity, w.WindSpeed)
}

func cannedReply(city, description string) string {
	if description == "" {
		description = "current conditions"
	}
	return fmt.Sprintf("I don't have access to the AI model right now. Quick tip: Based on %s in %s, "+
		"consider outdoor visits in the morning and indoor activities in the afternoon. "+
		"You can ask more specific questions and I'll help.", description, city)
}

func apology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error: %v", err)
}

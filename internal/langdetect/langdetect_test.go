package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty defaults to english", "", English},
		{"english layout brief", "Design a layout for this building with three rooms and an open floor plan.", English},
		{"turkish building code", "Madde 5. Bir konut binasında her oda için asgari alan şartı aranır ve bu değer dokuz metrekaredir.", Turkish},
		{"german regulation", "Die Wohnung muss für jedes Zimmer eine natürliche Belichtung haben und das Gebäude braucht einen zweiten Rettungsweg.", German},
		{"french description", "Le bâtiment comprend une pièce principale avec des fenêtres pour la lumière naturelle.", French},
		{"spanish description", "El edificio tiene una planta con habitación principal y baño para este proyecto.", Spanish},
		{"diacritics dominate", "ğğğ ışık şşş", Turkish},
		{"numbers only default to english", "12345 67890", English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestSentenceDelimiters(t *testing.T) {
	assert.Contains(t, SentenceDelimiters(Turkish), ':')
	assert.Contains(t, SentenceDelimiters(German), ';')
	assert.NotContains(t, SentenceDelimiters(English), ':')
}

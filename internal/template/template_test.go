package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/waveline/engage-gateway/internal/model"
)

func TestRender(t *testing.T) {
	data := map[string]string{
		"name":    "Maria",
		"company": "Acme GmbH",
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "Hi {{name}}!",
			expected: "Hi Maria!",
		},
		{
			name:     "multiple placeholders",
			template: "Hi {{name}} from {{company}}",
			expected: "Hi Maria from Acme GmbH",
		},
		{
			name:     "repeated placeholder",
			template: "{{name}} {{name}}",
			expected: "Maria Maria",
		},
		{
			name:     "missing key renders empty",
			template: "Your code is {{code}}.",
			expected: "Your code is .",
		},
		{
			name:     "whitespace inside markers is trimmed",
			template: "Hi {{ name }}!",
			expected: "Hi Maria!",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			expected: "plain text",
		},
		{
			name:     "unterminated marker passes through",
			template: "Hi {{name",
			expected: "Hi {{name",
		},
		{
			name:     "empty template",
			template: "",
			expected: "",
		},
		{
			name:     "adjacent placeholders",
			template: "{{name}}{{company}}",
			expected: "MariaAcme GmbH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.template, data))
		})
	}
}

func TestRender_NilData(t *testing.T) {
	assert.Equal(t, "Hi !", Render("Hi {{name}}!", nil))
}

func TestContactFields(t *testing.T) {
	c := &model.Contact{
		Phone:   "4915123456789",
		Name:    "Maria",
		Company: "Acme GmbH",
		Email:   "maria@acme.example",
	}

	fields := ContactFields(c)
	assert.Equal(t, "Maria", fields["name"])
	assert.Equal(t, "Acme GmbH", fields["company"])
	assert.Equal(t, "maria@acme.example", fields["email"])
	assert.Equal(t, "4915123456789", fields["phone"])
}

func TestContactFields_Nil(t *testing.T) {
	fields := ContactFields(nil)
	assert.NotNil(t, fields)
	assert.Equal(t, "", fields["name"])
}

func TestContactFields_MissingAttributes(t *testing.T) {
	fields := ContactFields(&model.Contact{Phone: "4915123456789"})
	assert.Equal(t, "", fields["name"])
	assert.Equal(t, "", fields["company"])
	assert.Equal(t, "Hi , welcome!", Render("Hi {{name}}, welcome!", fields))
}

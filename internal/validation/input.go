package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength      = 3
	MaxUsernameLength      = 30
	MinPasswordLength      = 8
	MaxPasswordLength      = 72
	MinDescriptionLength   = 10
	MaxDescriptionLength   = 5000
	MaxCategoryLength      = 100
	MaxProposalMessage     = 2000
	MinDisputeReasonLength = 10
	MaxDisputeReasonLength = 2000
	MinMessageLength       = 1
	MaxMessageLength       = 5000
	MaxReviewCommentLength = 2000
	MinPrice               = 0.0
	MaxPrice               = 100000000.0 // 100 миллионов
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidatePassword проверяет пароль.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("пароль обязателен")
	}
	if err := ValidateLength("пароль", password, MinPasswordLength, MaxPasswordLength); err != nil {
		return err
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateJobDescription проверяет описание заявки.
func ValidateJobDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание заявки обязательно")
	}

	description = strings.TrimSpace(description)

	if err := ValidateLength("описание заявки", description, MinDescriptionLength, MaxDescriptionLength); err != nil {
		return err
	}

	return nil
}

// ValidateCategory проверяет категорию услуги.
func ValidateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("категория обязательна")
	}

	category = strings.TrimSpace(category)

	if err := ValidateLength("категория", category, 1, MaxCategoryLength); err != nil {
		return err
	}

	return nil
}

// ValidatePrice проверяет цену или сумму ставки.
func ValidatePrice(fieldName string, price float64) error {
	if price <= MinPrice {
		return fmt.Errorf("%s должна быть положительной", fieldName)
	}
	if price > MaxPrice {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxPrice)
	}
	return nil
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	if reason == "" {
		return fmt.Errorf("причина спора обязательна")
	}

	reason = strings.TrimSpace(reason)

	if err := ValidateLength("причина спора", reason, MinDisputeReasonLength, MaxDisputeReasonLength); err != nil {
		return err
	}

	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if content == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}

	content = strings.TrimSpace(content)

	if err := ValidateLength("сообщение", content, MinMessageLength, MaxMessageLength); err != nil {
		return err
	}

	return nil
}

// ValidateReviewComment проверяет комментарий отзыва.
func ValidateReviewComment(comment *string) error {
	if comment != nil && *comment != "" {
		c := strings.TrimSpace(*comment)
		if err := ValidateLength("комментарий", c, 0, MaxReviewCommentLength); err != nil {
			return err
		}
	}
	return nil
}

package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized     = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID    = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	PhoneInvalid     = Definition{Code: "PHONE_INVALID", Message: "Invalid phone number"}
	LoginCodeInvalid = Definition{Code: "LOGIN_CODE_INVALID", Message: "Invalid or expired verification code"}
	LoginThrottled   = Definition{Code: "LOGIN_THROTTLED", Message: "Verification code requested too frequently"}
	TooManyRequests  = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please try again later"}
)

// 打卡与时间窗口模块错误。
var (
	ScheduleNotFound     = Definition{Code: "SCHEDULE_NOT_FOUND", Message: "Check-in schedule not found"}
	ScheduleWindowBad    = Definition{Code: "SCHEDULE_WINDOW_INVALID", Message: "Window end must be after window start"}
	ScheduleTimezoneBad  = Definition{Code: "SCHEDULE_TIMEZONE_INVALID", Message: "Unknown IANA timezone"}
	ScheduleDaysInvalid  = Definition{Code: "SCHEDULE_DAYS_INVALID", Message: "Active weekdays must be a subset of 0..6"}
	CheckInScoreInvalid  = Definition{Code: "CHECK_IN_SCORE_INVALID", Message: "Scores must be between 1 and 5"}
	CheckInAlreadyExists = Definition{Code: "CHECK_IN_ALREADY_EXISTS", Message: "Check-in already recorded for today"}
)

// 守护圈模块错误。
var (
	CircleLinkExists    = Definition{Code: "CIRCLE_LINK_EXISTS", Message: "Supporter already in circle"}
	CircleLinkNotFound  = Definition{Code: "CIRCLE_LINK_NOT_FOUND", Message: "Supporter not in circle"}
	CirclePriorityBad   = Definition{Code: "CIRCLE_PRIORITY_INVALID", Message: "Alert priority must be positive"}
	CircleSelfReference = Definition{Code: "CIRCLE_SELF_REFERENCE", Message: "Cannot add yourself as a supporter"}
)

// 警报模块错误。
var (
	AlertNotFound         = Definition{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}
	AlertResolutionBad    = Definition{Code: "ALERT_RESOLUTION_INVALID", Message: "Unknown resolution reason"}
	AlertNotYourCircle    = Definition{Code: "ALERT_NOT_YOUR_CIRCLE", Message: "Alert does not belong to your circle"}
	AlertDuplicateOpen    = Definition{Code: "ALERT_DUPLICATE_OPEN", Message: "An open alert already exists for this day"}
	AlertLevelNotIncrease = Definition{Code: "ALERT_LEVEL_NOT_INCREASED", Message: "Alert level can only increase"}
)

// 令牌相关错误。
var (
	ErrTokenGeneratorNotInitialized = Definition{Code: "TOKEN_GENERATOR_NOT_INITIALIZED", Message: "Token generator not initialized"}
	ErrUnexpectedSigningMethod      = Definition{Code: "TOKEN_SIGNING_METHOD_INVALID", Message: "Unexpected token signing method"}
	ErrInvalidToken                 = Definition{Code: "TOKEN_INVALID", Message: "Invalid token"}
	ErrInvalidTokenClaims           = Definition{Code: "TOKEN_CLAIMS_INVALID", Message: "Invalid token claims"}
	ErrInvalidTokenType             = Definition{Code: "TOKEN_TYPE_INVALID", Message: "Invalid token type"}
	ErrUserIDNotFound               = Definition{Code: "TOKEN_USER_ID_NOT_FOUND", Message: "User ID not found in token"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:          Unauthorized,
	InvalidUserID.Code:         InvalidUserID,
	PhoneInvalid.Code:          PhoneInvalid,
	LoginCodeInvalid.Code:      LoginCodeInvalid,
	LoginThrottled.Code:        LoginThrottled,
	TooManyRequests.Code:       TooManyRequests,
	ScheduleNotFound.Code:      ScheduleNotFound,
	ScheduleWindowBad.Code:     ScheduleWindowBad,
	ScheduleTimezoneBad.Code:   ScheduleTimezoneBad,
	ScheduleDaysInvalid.Code:   ScheduleDaysInvalid,
	CheckInScoreInvalid.Code:   CheckInScoreInvalid,
	CheckInAlreadyExists.Code:  CheckInAlreadyExists,
	CircleLinkExists.Code:      CircleLinkExists,
	CircleLinkNotFound.Code:    CircleLinkNotFound,
	CirclePriorityBad.Code:     CirclePriorityBad,
	CircleSelfReference.Code:   CircleSelfReference,
	AlertNotFound.Code:         AlertNotFound,
	AlertResolutionBad.Code:    AlertResolutionBad,
	AlertNotYourCircle.Code:    AlertNotYourCircle,
	AlertDuplicateOpen.Code:    AlertDuplicateOpen,
	AlertLevelNotIncrease.Code: AlertLevelNotIncrease,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

package errors

import "errors"

// SkipMessageError 标记一条消息应当被确认并跳过（重复消息/毒消息），
// 消费者收到此错误时 Ack 而不是 Nack 重回队列。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return errors.As(err, &skip)
}

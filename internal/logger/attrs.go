package logger

import "log/slog"

func IntentID(id string) slog.Attr {
	return slog.String("intent_id", id)
}

func FlowID(id string) slog.Attr {
	return slog.String("flow_id", id)
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func Op(name string) slog.Attr {
	return slog.String("op", name)
}

func Err(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

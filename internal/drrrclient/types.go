package drrrclient

// Типы ответов drrr.com (?api=json). Поля — подмножество того, что реально
// отдаёт сервер; лишнее json игнорирует сам.

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tripcode string `json:"tripcode,omitempty"`
	Device   string `json:"device,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Talk — одна запись ленты комнаты. Type: "message", "me", "music",
// "join", "leave", "new-host", ...
type Talk struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Message string  `json:"message,omitempty"`
	URL     string  `json:"url,omitempty"`
	From    *User   `json:"from,omitempty"`
	To      *User   `json:"to,omitempty"`
	Time    float64 `json:"time,omitempty"`
}

// Room — снапшот комнаты: кто внутри, кто хост, новые записи ленты
// и водяная отметка Update для инкрементального опроса.
type Room struct {
	ID          string  `json:"roomId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Limit       int     `json:"limit"`
	Users       []User  `json:"users"`
	Host        *User   `json:"host,omitempty"`
	Talks       []Talk  `json:"talks"`
	Update      float64 `json:"update"`
}

type Lounge struct {
	Rooms []Room `json:"rooms"`
}

// ответ на GET комнаты с кодом 403: сервер требует подтвердить вход
type joinAuth struct {
	ID            string `json:"id"`
	Authorization string `json:"authorization"`
}

// общий ajax-ответ на POST /room/?ajax=1
type ajaxResult struct {
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

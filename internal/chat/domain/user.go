package domain

// ContactRef one entry of a user's contact list
type ContactRef struct {
	UserID  string `bson:"user_id" json:"userId"`
	Blocked bool   `bson:"blocked" json:"blocked"`
}

// RoomRef group room membership
type RoomRef struct {
	RoomID  string `bson:"room_id" json:"roomId"`
	Blocked bool   `bson:"blocked" json:"blocked"`
}

// ChannelRef channel membership
type ChannelRef struct {
	ChannelID string `bson:"channel_id" json:"channelId"`
	Blocked   bool   `bson:"blocked" json:"blocked"`
}

// User is the directory view the delivery core needs: identity, public
// profile fields, and the memberships that drive broadcast-group joins and
// status fan-out. Profile CRUD lives elsewhere.
type User struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	Username    string       `bson:"username" json:"username"`
	ProfilePic  string       `bson:"profile_pic,omitempty" json:"profilePic,omitempty"`
	PhoneNumber string       `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Country     string       `bson:"country,omitempty" json:"country,omitempty"`
	Contacts    []ContactRef `bson:"contacts,omitempty" json:"contacts,omitempty"`
	Rooms       []RoomRef    `bson:"rooms,omitempty" json:"rooms,omitempty"`
	Channels    []ChannelRef `bson:"channels,omitempty" json:"channels,omitempty"`
}

// ActiveContacts returns the non-blocked contact ids.
func (u *User) ActiveContacts() []string {
	var ids []string
	for _, c := range u.Contacts {
		if !c.Blocked && c.UserID != "" {
			ids = append(ids, c.UserID)
		}
	}
	return ids
}

// PublicProfile is the subset of User joined into conversation listings.
type PublicProfile struct {
	ID          string `bson:"_id" json:"id"`
	Username    string `bson:"username" json:"username"`
	ProfilePic  string `bson:"profile_pic,omitempty" json:"profilePic,omitempty"`
	PhoneNumber string `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Country     string `bson:"country,omitempty" json:"country,omitempty"`
}

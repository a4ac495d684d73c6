package mixer

const (
	NumTracks = 16
	NumGroups = 4
	NumAux    = 4

	numChannels     = NumTracks + NumGroups
	numSendLevels   = numChannels * NumAux
	numReturnValues = NumAux * 5 // pan, fader, mute, solo, group
)

// MixMaster parameter registers.
const (
	TrackPanParams   = 0
	TrackFaderParams = TrackPanParams + NumTracks
	TrackMuteParams  = TrackFaderParams + NumTracks
	TrackSoloParams  = TrackMuteParams + NumTracks
	GroupPanParams   = TrackSoloParams + NumTracks
	GroupFaderParams = GroupPanParams + NumGroups
	GroupMuteParams  = GroupFaderParams + NumGroups
	GroupSoloParams  = GroupMuteParams + NumGroups
	MainFaderParam   = GroupSoloParams + NumGroups
	MainMuteParam    = MainFaderParam + 1
	MainDimParam     = MainMuteParam + 1
	MainMonoParam    = MainDimParam + 1
	GrpIncParams     = MainMonoParam + 1
	GrpDecParams     = GrpIncParams + NumTracks
	NumParams        = GrpDecParams + NumTracks
)

// MixMaster input registers. Track signal inputs are L/R pairs.
const (
	TrackSignalInputs = 0
	TrackVolInputs    = TrackSignalInputs + 2*NumTracks
	GroupVolInputs    = TrackVolInputs + NumTracks
	TrackPanInputs    = GroupVolInputs + NumGroups
	GroupPanInputs    = TrackPanInputs + NumTracks
	NumInputs         = GroupPanInputs + NumGroups
)

// MixMaster output registers. DirectOutputs+0 carries tracks 1-8, +1 tracks
// 9-16 and +2 the groups, as interleaved L/R poly channels.
const (
	DirectOutputs = 0
	MainOutputs   = DirectOutputs + 3
	NumOutputs    = MainOutputs + 2
)

// mix bus layout: master L/R followed by one L/R pair per group.
const mixLen = 2 + 2*NumGroups

const defaultTrackLabels = "-01--02--03--04--05--06--07--08--09--10--11--12--13--14--15--16-GRP1GRP2GRP3GRP4"
